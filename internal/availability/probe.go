package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
)

// Router dispatches queries to per-refuge fetchers, falling back to the
// planning client. Huts whose availability lives outside the central
// booking system get their own Fetcher keyed by id.
type Router struct {
	base      Fetcher
	overrides map[int]Fetcher
}

func NewRouter(base Fetcher) *Router {
	return &Router{base: base, overrides: make(map[int]Fetcher)}
}

// Override routes all queries for one refuge id through f.
func (r *Router) Override(id int, f Fetcher) {
	r.overrides[id] = f
}

func (r *Router) Fetch(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	if f, ok := r.overrides[q.RefugeID]; ok {
		return f.Fetch(ctx, q)
	}
	return r.base.Fetch(ctx, q)
}

// ProbeFetcher answers for refuges the planning system does not cover by
// probing the refuge's own booking page. The page only reveals whether
// booking is open at all, so snapshots never carry a places count; the
// marker is text the page shows while booking is shut.
type ProbeFetcher struct {
	http   *resty.Client
	url    string
	marker string
	cache  *Cache
	now    func() time.Time
}

func NewProbeFetcher(probeURL, marker string, cfg *config.Config) *ProbeFetcher {
	c := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(30 * time.Second)

	return &ProbeFetcher{
		http:   c,
		url:    probeURL,
		marker: marker,
		cache:  NewCache(cfg.CacheTTLDuration()),
		now:    time.Now,
	}
}

// Fetch probes the booking page. The answer is date-independent, but it is
// cached per query so every night of a plan shares one page load within
// the TTL. A failed probe is a fetch failure, never "not bookable".
func (p *ProbeFetcher) Fetch(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	if snap, at, ok := p.cache.Get(q); ok {
		return snap, at, nil
	}

	resp, err := p.http.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return Snapshot{}, time.Time{}, &FetchError{Query: q, Reason: "probing booking page", Err: err}
	}
	if resp.IsError() {
		return Snapshot{}, time.Time{}, &FetchError{
			Query: q, Reason: fmt.Sprintf("booking page returned %d", resp.StatusCode()),
		}
	}

	snap := Snapshot{Bookable: !strings.Contains(resp.String(), p.marker)}
	fetchedAt := p.now()
	p.cache.Put(q, snap, fetchedAt)
	return snap, fetchedAt, nil
}
