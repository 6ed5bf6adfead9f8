package availability

import (
	"context"

	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

// Checker answers "does refuge X have capacity on date D", composing the
// directory (for display names) with the fetcher. It never sleeps and
// never prints; its only side effect is whatever caching the fetcher does.
type Checker struct {
	dir     *refuge.Directory
	fetcher Fetcher
}

func NewChecker(dir *refuge.Directory, fetcher Fetcher) *Checker {
	return &Checker{dir: dir, fetcher: fetcher}
}

// Check evaluates one query. On fetch failure the returned Result still
// carries the refuge and date so the caller can report which query failed.
func (c *Checker) Check(ctx context.Context, q Query) (Result, error) {
	ref, ok := c.dir.ByID(q.RefugeID)
	if !ok {
		ref = refuge.Unknown(q.RefugeID)
	}
	res := Result{Refuge: ref, Date: q.Date}

	snap, fetchedAt, err := c.fetcher.Fetch(ctx, q)
	if err != nil {
		return res, err
	}
	res.Snapshot = snap
	res.FetchedAt = fetchedAt
	return res, nil
}
