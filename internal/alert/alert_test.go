package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/poll"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

func testDate(t *testing.T, s string) availability.Date {
	t.Helper()
	d, err := availability.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func entry(t *testing.T, id int, name, dateStr string, snap availability.Snapshot, err error) poll.Entry {
	t.Helper()
	d := testDate(t, dateStr)
	return poll.Entry{
		Query: availability.Query{RefugeID: id, Date: d},
		Result: availability.Result{
			Refuge:   refuge.Refuge{ID: id, Name: name},
			Date:     d,
			Snapshot: snap,
		},
		Err: err,
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		snap availability.Snapshot
		want string
	}{
		{"several places", availability.Snapshot{Places: 13, PlacesKnown: true, Bookable: true}, "13 places"},
		{"one place", availability.Snapshot{Places: 1, PlacesKnown: true, Bookable: true}, "1 place"},
		{"full", availability.Snapshot{Places: 0, PlacesKnown: true, Bookable: true}, "full"},
		{"closed", availability.Snapshot{Closed: true, Bookable: true}, "closed"},
		{"not bookable", availability.Snapshot{Bookable: false}, "not bookable online"},
		{"open without count", availability.Snapshot{Bookable: true, PlacesKnown: false}, "booking open, places unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusText(availability.Result{Snapshot: tt.snap})
			if got != tt.want {
				t.Errorf("StatusText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintCyclePlain(t *testing.T) {
	var out strings.Builder
	p := NewPrinter(&out, true, true)

	p.PrintCycle(poll.Cycle{
		Number: 1,
		Entries: []poll.Entry{
			entry(t, 32378, "Auberge la Boerne", "2026-07-10",
				availability.Snapshot{Places: 4, PlacesKnown: true, Bookable: true}, nil),
			entry(t, 32400, "Auberge des Glaciers", "2026-07-10",
				availability.Snapshot{Places: 0, PlacesKnown: true, Bookable: true}, nil),
			entry(t, 32410, "Gîte Le Pontet", "2026-07-11",
				availability.Snapshot{}, availability.ErrFetchFailed),
		},
		Wait: 5 * time.Minute,
	})

	got := out.String()
	for _, want := range []string{
		"Friday, Jul 10, 2026",
		"Saturday, Jul 11, 2026",
		"4 places",
		"full",
		"check failed",
		"checking again in 5m0s",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\a") {
		t.Error("silent printer rang the bell")
	}
}

func TestPrintCycleAlignsNames(t *testing.T) {
	var out strings.Builder
	p := NewPrinter(&out, true, true)

	p.PrintCycle(poll.Cycle{
		Number: 1,
		Entries: []poll.Entry{
			entry(t, 1, "Short", "2026-07-10",
				availability.Snapshot{Places: 2, PlacesKnown: true, Bookable: true}, nil),
			entry(t, 2, "A Much Longer Name", "2026-07-10",
				availability.Snapshot{Places: 3, PlacesKnown: true, Bookable: true}, nil),
		},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	var statusCols []int
	for _, line := range lines {
		if i := strings.Index(line, " places"); i >= 0 {
			start := strings.LastIndex(line[:i], "  ")
			statusCols = append(statusCols, start)
		}
	}
	if len(statusCols) != 2 {
		t.Fatalf("expected 2 status lines, got %d:\n%s", len(statusCols), out.String())
	}
	if statusCols[0] != statusCols[1] {
		t.Errorf("status columns misaligned: %v", statusCols)
	}
}

func TestPrintCycleSatisfiedRingsBell(t *testing.T) {
	var out strings.Builder
	p := NewPrinter(&out, true, false)

	p.PrintCycle(poll.Cycle{
		Number: 2,
		Entries: []poll.Entry{
			entry(t, 32378, "Auberge la Boerne", "2026-07-10",
				availability.Snapshot{Places: 13, PlacesKnown: true, Bookable: true}, nil),
		},
		Satisfied: true,
	})

	got := out.String()
	if !strings.Contains(got, "go book them") {
		t.Errorf("output missing booking nudge:\n%s", got)
	}
	if !strings.Contains(got, "\a") {
		t.Error("satisfied cycle did not ring the bell")
	}
}

func TestRingSilent(t *testing.T) {
	var out strings.Builder
	NewPrinter(&out, true, true).Ring()
	if out.Len() != 0 {
		t.Errorf("silent Ring wrote %q", out.String())
	}
}

func TestFormatEntryUnknownRefuge(t *testing.T) {
	var out strings.Builder
	p := NewPrinter(&out, true, true)
	e := poll.Entry{
		Query: availability.Query{RefugeID: 99999, Date: testDate(t, "2026-07-10")},
		Err:   availability.ErrFetchFailed,
	}
	line := p.FormatEntry(e, 12)
	if !strings.Contains(line, "refuge 99999") {
		t.Errorf("FormatEntry() = %q, want fallback name with id", line)
	}
}
