// Package poll drives repeated availability checks until every watched
// night has places or the caller gives up. Waiting for an opening is the
// whole point, so the loop is unbounded by design; only cancellation or
// full satisfaction ends it.
package poll

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
)

// Checker is the engine the loop polls. Satisfied by *availability.Checker.
type Checker interface {
	Check(ctx context.Context, q availability.Query) (availability.Result, error)
}

// Entry is one query's outcome within a cycle. Err is set on fetch
// failure; the Result still identifies the refuge and date.
type Entry struct {
	Query  availability.Query
	Result availability.Result
	Err    error
}

// Satisfied reports whether this entry shows enough open places.
func (e Entry) Satisfied(minPlaces int) bool {
	return e.Err == nil && e.Result.Status() == availability.StatusOpen && e.Result.Places >= minPlaces
}

// Cycle is everything one pass over the queries produced. Wait is how long
// the loop will sleep before the next cycle, zero when the loop is done.
type Cycle struct {
	Number    int
	Entries   []Entry
	Satisfied bool
	Wait      time.Duration
}

// Loop evaluates a fixed set of queries each cycle. One query failing
// never aborts a cycle and never ends the loop.
type Loop struct {
	checker   Checker
	interval  time.Duration
	jitter    time.Duration
	minPlaces int

	// SingleShot stops after the first cycle regardless of outcome.
	SingleShot bool

	sleep      func(context.Context, time.Duration) error
	pickJitter func(time.Duration) time.Duration
}

func New(checker Checker, interval, jitter time.Duration, minPlaces int) *Loop {
	if minPlaces < 1 {
		minPlaces = 1
	}
	return &Loop{
		checker:    checker,
		interval:   interval,
		jitter:     jitter,
		minPlaces:  minPlaces,
		sleep:      sleepCtx,
		pickJitter: randomJitter,
	}
}

// Run polls until every query is satisfied, the context is cancelled, or
// (in single-shot mode) one cycle completes. report sees every cycle,
// including the final one, before Run returns. Run returns nil when the
// loop stopped because it was done, ctx.Err() when cancelled.
func (l *Loop) Run(ctx context.Context, queries []availability.Query, report func(Cycle)) error {
	if len(queries) == 0 {
		return errors.New("nothing to poll: no queries")
	}

	for number := 1; ; number++ {
		entries := make([]Entry, 0, len(queries))
		satisfied := true
		for _, q := range queries {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := l.checker.Check(ctx, q)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				// Non-terminal: report and keep polling.
				log.Warn().Stringer("query", q).Err(err).Msg("check failed")
			}
			e := Entry{Query: q, Result: res, Err: err}
			if !e.Satisfied(l.minPlaces) {
				satisfied = false
			}
			entries = append(entries, e)
		}

		if satisfied || l.SingleShot {
			report(Cycle{Number: number, Entries: entries, Satisfied: satisfied})
			return nil
		}

		wait := l.interval + l.pickJitter(l.jitter)
		if wait <= 0 {
			wait = l.interval
		}
		report(Cycle{Number: number, Entries: entries, Wait: wait})

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// randomJitter picks a value in [-max, +max].
func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(2*max))) - max
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
