package availability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
)

const probeMarker = "Reservations are not possible at this time"

func testProbe(t *testing.T, url string) *ProbeFetcher {
	t.Helper()
	cfg := &config.Config{
		CacheTTL:  "1m",
		UserAgent: "test",
	}
	return NewProbeFetcher(url, probeMarker, cfg)
}

func TestProbeFetchBookingOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Book your stay now</body></html>"))
	}))
	defer srv.Close()

	p := testProbe(t, srv.URL)
	snap, _, err := p.Fetch(context.Background(), Query{RefugeID: 90001, Date: Date{Year: 2026, Month: 7, Day: 10}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !snap.Bookable {
		t.Error("page without marker should read as bookable")
	}
	if snap.PlacesKnown {
		t.Error("a probe can never know a places count")
	}
	if got := snap.Status(); got != StatusNotBookable {
		t.Errorf("Status() = %v, want StatusNotBookable (count unknown)", got)
	}
}

func TestProbeFetchBookingShut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>" + probeMarker + "</body></html>"))
	}))
	defer srv.Close()

	p := testProbe(t, srv.URL)
	snap, _, err := p.Fetch(context.Background(), Query{RefugeID: 90001, Date: Date{Year: 2026, Month: 7, Day: 10}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if snap.Bookable {
		t.Error("marker on the page should read as not bookable")
	}
}

func TestProbeFetchServerErrorIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := testProbe(t, srv.URL)
	_, _, err := p.Fetch(context.Background(), Query{RefugeID: 90001, Date: Date{Year: 2026, Month: 7, Day: 10}})
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}

func TestProbeFetchCachesRepeatQueries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("open season"))
	}))
	defer srv.Close()

	p := testProbe(t, srv.URL)
	q := Query{RefugeID: 90001, Date: Date{Year: 2026, Month: 7, Day: 10}}

	for i := 0; i < 3; i++ {
		if _, _, err := p.Fetch(context.Background(), q); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("repeated fetches hit the page %d times, want 1", calls)
	}
}

type fixedFetcher struct {
	snap  Snapshot
	calls int
}

func (f *fixedFetcher) Fetch(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	f.calls++
	return f.snap, time.Now(), nil
}

func TestRouterDispatchesByRefugeID(t *testing.T) {
	base := &fixedFetcher{snap: Snapshot{Places: 4, PlacesKnown: true, Bookable: true}}
	special := &fixedFetcher{snap: Snapshot{Bookable: true}}

	r := NewRouter(base)
	r.Override(90001, special)

	day := Date{Year: 2026, Month: 7, Day: 10}
	if _, _, err := r.Fetch(context.Background(), Query{RefugeID: 32378, Date: day}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, _, err := r.Fetch(context.Background(), Query{RefugeID: 90001, Date: day}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if base.calls != 1 || special.calls != 1 {
		t.Errorf("router dispatch: base=%d special=%d, want 1 and 1", base.calls, special.calls)
	}
}
