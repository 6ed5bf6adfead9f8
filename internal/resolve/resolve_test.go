package resolve

import (
	"errors"
	"testing"

	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

func testDirectory() *refuge.Directory {
	return refuge.NewDirectory([]refuge.Refuge{
		{ID: 32367, Name: "Auberge-Refuge de la Nova"},
		{ID: 32378, Name: "Auberge la Boerne"},
		{ID: 32400, Name: "Auberge des Glaciers"},
		{ID: 32410, Name: "Gîte Le Pontet"},
		{ID: 90001, Name: "Refuge du Lac Blanc"},
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Gîte Le Pontet", "gite le pontet"},
		{"GLACIÈRS", "glaciers"},
		{"  spaced   out  ", "spaced out"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveRoundTrip(t *testing.T) {
	// A fragment built from a refuge's own name always matches that refuge.
	dir := testDirectory()
	for _, r := range dir.All() {
		matches, err := Resolve(Normalize(r.Name), dir)
		if err != nil {
			t.Errorf("resolve(%q): %v", r.Name, err)
			continue
		}
		found := false
		for _, m := range matches {
			if m.ID == r.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("resolve(%q) did not include refuge %d", r.Name, r.ID)
		}
	}
}

func TestResolveAccentAndCaseInsensitive(t *testing.T) {
	dir := testDirectory()
	for _, fragment := range []string{"glaciers", "Glaciers", "GLACIÈRS", "gîte"} {
		matches, err := Resolve(fragment, dir)
		if err != nil {
			t.Fatalf("resolve(%q): %v", fragment, err)
		}
		if len(matches) == 0 {
			t.Fatalf("resolve(%q): no matches", fragment)
		}
	}

	matches, err := Resolve("GLACIÈRS", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if matches[0].ID != 32400 {
		t.Errorf("expected Auberge des Glaciers, got %+v", matches[0])
	}
}

func TestResolveTokensAnyOrder(t *testing.T) {
	dir := testDirectory()
	matches, err := Resolve("nova de la", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if matches[0].ID != 32367 {
		t.Errorf("expected la Nova, got %+v", matches[0])
	}
}

func TestResolvePrefersExactSubstring(t *testing.T) {
	dir := testDirectory()
	// "auberge la" is a literal substring of "Auberge la Boerne" but only a
	// token match for the other auberges.
	matches, err := Resolve("auberge la", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if matches[0].ID != 32378 {
		t.Errorf("expected exact substring match first, got %+v", matches[0])
	}
	if len(matches) != 1 {
		t.Errorf("expected token matches excluded when substring tier hits, got %d", len(matches))
	}
}

func TestResolveMultipleMatchesKeepDirectoryOrder(t *testing.T) {
	dir := testDirectory()
	matches, err := Resolve("auberge", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 auberges, got %d", len(matches))
	}
	// Directory order is name-sorted.
	if matches[0].ID != 32400 || matches[1].ID != 32378 || matches[2].ID != 32367 {
		t.Errorf("unexpected order: %+v", matches)
	}
}

func TestResolveTypoFallback(t *testing.T) {
	dir := testDirectory()
	matches, err := Resolve("glacers", dir)
	if err != nil {
		t.Fatalf("resolve with typo: %v", err)
	}
	if matches[0].ID != 32400 {
		t.Errorf("expected Glaciers via typo tier, got %+v", matches[0])
	}
}

func TestResolveByID(t *testing.T) {
	dir := testDirectory()
	matches, err := Resolve("32367", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Auberge-Refuge de la Nova" {
		t.Errorf("unexpected id match %+v", matches)
	}
}

func TestResolveUnknownIDPlaceholder(t *testing.T) {
	dir := testDirectory()
	matches, err := Resolve("12345", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if matches[0].Name != "Unknown refuge (12345)" {
		t.Errorf("expected placeholder, got %+v", matches[0])
	}
}

func TestResolveNoMatch(t *testing.T) {
	dir := testDirectory()
	_, err := Resolve("zzzzzzzz", dir)
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestResolveAllIsolatesFailures(t *testing.T) {
	dir := testDirectory()
	outcomes := ResolveAll([]string{"nova", "zzzzzzzz", "boerne"}, dir)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Resolved() || outcomes[0].Best().ID != 32367 {
		t.Errorf("expected nova resolved, got %+v", outcomes[0])
	}
	if outcomes[1].Resolved() {
		t.Error("expected middle fragment unresolved")
	}
	if !errors.Is(outcomes[1].Err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", outcomes[1].Err)
	}
	if !outcomes[2].Resolved() || outcomes[2].Best().ID != 32378 {
		t.Errorf("expected boerne resolved despite earlier failure, got %+v", outcomes[2])
	}
}
