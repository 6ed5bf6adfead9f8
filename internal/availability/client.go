package availability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
)

// Fetcher answers availability queries. The poll engine only ever talks to
// this interface, so tests swap in stubs.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Snapshot, time.Time, error)
}

// Client is the one component allowed to talk to the booking site. It
// serializes outbound requests, keeps a minimum spacing between them, and
// consults the cache before going to the network at all. A cache hit does
// not count against the rate limit.
type Client struct {
	http    *resty.Client
	baseURL string
	parser  Parser
	cache   *Cache

	interval       time.Duration
	attempts       int
	initialBackoff time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu   sync.Mutex // held for the whole wait+request, one caller at a time
	next time.Time  // earliest moment the next request may go out
}

func NewClient(cfg *config.Config) *Client {
	c := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(30 * time.Second)

	return &Client{
		http:           c,
		baseURL:        cfg.AvailabilityURL,
		parser:         NewPlanningParser(),
		cache:          NewCache(cfg.CacheTTLDuration()),
		interval:       cfg.RequestIntervalDuration(),
		attempts:       cfg.GetRetryAttempts(),
		initialBackoff: cfg.RetryBackoffDuration(),
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

// Cache exposes the client's cache, mainly so callers can report its size.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Fetch returns the snapshot for q, from cache when fresh, otherwise via a
// rate-limited request with bounded retry. A successful fetch caches every
// day the response window covers, not just the requested one.
func (c *Client) Fetch(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	if snap, at, ok := c.cache.Get(q); ok {
		log.Debug().Stringer("query", q).Msg("cache hit")
		return snap, at, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have fetched this while we queued for the lock.
	if snap, at, ok := c.cache.Get(q); ok {
		return snap, at, nil
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, time.Time{}, err
	}

	return c.fetchLocked(ctx, q)
}

func (c *Client) fetchLocked(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.Multiplier = 2
	exp.MaxInterval = 30 * time.Second
	exp.Reset()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, exp.NextBackOff()); err != nil {
				return Snapshot{}, time.Time{}, err
			}
		}
		if err := c.waitTurn(ctx); err != nil {
			return Snapshot{}, time.Time{}, err
		}

		snap, at, err := c.request(ctx, q)
		if err == nil {
			return snap, at, nil
		}
		if ctx.Err() != nil {
			return Snapshot{}, time.Time{}, ctx.Err()
		}
		lastErr = err
		if fe, ok := err.(*FetchError); ok && fe.permanent {
			// An unambiguous answer from the site; retrying cannot help.
			return Snapshot{}, time.Time{}, err
		}
		log.Debug().Stringer("query", q).Int("attempt", attempt).Err(err).
			Msg("availability fetch attempt failed")
	}
	return Snapshot{}, time.Time{}, lastErr
}

// waitTurn blocks until the rate-limit window permits a request, then
// claims the next slot. Interruptible by ctx.
func (c *Client) waitTurn(ctx context.Context) error {
	if wait := c.next.Sub(c.now()); wait > 0 {
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	c.next = c.now().Add(c.interval)
	return nil
}

func (c *Client) request(ctx context.Context, q Query) (Snapshot, time.Time, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ref": "json-planning-refuge",
			"q":   fmt.Sprintf("%d,%s", q.RefugeID, q.Date),
		}).
		Get(c.baseURL)
	if err != nil {
		return Snapshot{}, time.Time{}, &FetchError{Query: q, Reason: "request failed", Err: err}
	}

	if resp.StatusCode() == http.StatusNotFound {
		return Snapshot{}, time.Time{}, &FetchError{
			Query: q, Reason: "refuge not known to booking site", permanent: true,
		}
	}
	if resp.IsError() {
		return Snapshot{}, time.Time{}, &FetchError{
			Query: q, Reason: fmt.Sprintf("status %d", resp.StatusCode()),
		}
	}

	days, err := c.parser.Parse(q.Date, resp.Body())
	if err != nil {
		return Snapshot{}, time.Time{}, &FetchError{
			Query: q, Reason: "unrecognized payload", Payload: resp.Body(), Err: err,
		}
	}

	fetchedAt := c.now()
	for d, snap := range days {
		c.cache.Put(Query{RefugeID: q.RefugeID, Date: d}, snap, fetchedAt)
	}

	snap, ok := days[q.Date]
	if !ok {
		return Snapshot{}, time.Time{}, &FetchError{
			Query: q, Reason: "requested date outside response window",
			Payload: resp.Body(), permanent: true,
		}
	}
	return snap, fetchedAt, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
