package refuge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
)

const catalogPage = `<html><body>
<div id="tabsrefuges">
  <div class="refuge">
    <a href="/fr/il4-refuge_i32367-auberge-la-nova.aspx">link</a>
    <div class="bloccontenurefuge"><h3>Auberge-Refuge de la Nova</h3></div>
  </div>
  <div class="refuge">
    <a href="/fr/il4-refuge_i32378-auberge-la-boerne.aspx">link</a>
    <div class="bloccontenurefuge"><h3> Auberge la Boerne </h3></div>
  </div>
  <div class="refuge">
    <a href="/fr/no-id-here.aspx">link</a>
    <div class="bloccontenurefuge"><h3>Should be skipped</h3></div>
  </div>
</div>
</body></html>`

func testSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		DirectoryURL:    srv.URL + "/catalog",
		RegionsURL:      srv.URL + "/regions",
		AvailabilityURL: srv.URL + "/avail",
		UserAgent:       "test",
	}
	return NewSource(cfg)
}

func TestDirectoryFromCatalogPage(t *testing.T) {
	var hits int
	src := testSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(catalogPage))
	}))

	dir, err := src.Directory(context.Background())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if dir.Len() != 2 {
		t.Fatalf("expected 2 refuges, got %d", dir.Len())
	}

	r, ok := dir.ByID(32367)
	if !ok {
		t.Fatal("refuge 32367 not found")
	}
	if r.Name != "Auberge-Refuge de la Nova" {
		t.Errorf("unexpected name %q", r.Name)
	}

	// Sorted by name: "Auberge la Boerne" < "Auberge-Refuge de la Nova".
	all := dir.All()
	if all[0].ID != 32378 {
		t.Errorf("expected name-sorted order, got %v first", all[0])
	}

	// Second call within TTL is served from the memoized snapshot.
	if _, err := src.Directory(context.Background()); err != nil {
		t.Fatalf("second directory call: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 catalog fetch, got %d", hits)
	}
}

func TestDirectoryIncludesSpecialRefuges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogPage))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		DirectoryURL:    srv.URL + "/catalog",
		RegionsURL:      srv.URL + "/regions",
		AvailabilityURL: srv.URL + "/avail",
		UserAgent:       "test",
		SpecialRefuges: []config.SpecialRefuge{
			{ID: 90001, Name: "Refuge du Lac Blanc", ProbeURL: "https://example.com/booking"},
		},
	}
	src := NewSource(cfg)

	dir, err := src.Directory(context.Background())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if dir.Len() != 3 {
		t.Fatalf("expected catalog refuges plus the special one, got %d", dir.Len())
	}
	r, ok := dir.ByID(90001)
	if !ok {
		t.Fatal("special refuge 90001 not in directory")
	}
	if r.Name != "Refuge du Lac Blanc" {
		t.Errorf("unexpected name %q", r.Name)
	}
}

func TestDirectoryRefreshAfterTTL(t *testing.T) {
	var hits int
	src := testSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(catalogPage))
	}))

	now := time.Now()
	src.now = func() time.Time { return now }
	src.ttl = time.Hour

	if _, err := src.Directory(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := src.Directory(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if hits != 2 {
		t.Errorf("expected re-fetch after TTL, got %d fetches", hits)
	}
}

func TestDirectoryUnavailable(t *testing.T) {
	src := testSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	_, err := src.Directory(context.Background())
	if err == nil {
		t.Fatal("expected error from unavailable catalog")
	}
	if !strings.Contains(err.Error(), "directory unavailable") {
		t.Errorf("expected directory unavailable error, got %v", err)
	}
}

func TestDirectoryEmptyPage(t *testing.T) {
	src := testSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))

	if _, err := src.Directory(context.Background()); err == nil {
		t.Fatal("expected error for page without catalog section")
	}
}

func TestParseRegions(t *testing.T) {
	body := "({\"ListeId\":[{\"Nom\":\"-&nbsp;Val Ferret \",\"Id\":\"32367, 32378\"},{\"Nom\":\"Empty\",\"Id\":\"\"}]});"
	regions, err := parseRegions([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].Name != "Val Ferret" {
		t.Errorf("expected cleaned name, got %q", regions[0].Name)
	}
	if len(regions[0].IDs) != 2 || regions[0].IDs[0] != 32367 {
		t.Errorf("unexpected ids %v", regions[0].IDs)
	}
}

func TestNewDirectoryDropsDuplicateIDs(t *testing.T) {
	dir := NewDirectory([]Refuge{
		{ID: 1, Name: "First"},
		{ID: 1, Name: "Second"},
		{ID: 2, Name: "Other"},
	})
	if dir.Len() != 2 {
		t.Fatalf("expected duplicate dropped, len=%d", dir.Len())
	}
	r, _ := dir.ByID(1)
	if r.Name != "First" {
		t.Errorf("expected first entry kept, got %q", r.Name)
	}
}

func TestUnknownPlaceholder(t *testing.T) {
	r := Unknown(90001)
	if r.ID != 90001 || r.Name != "Unknown refuge (90001)" {
		t.Errorf("unexpected placeholder %+v", r)
	}
}
