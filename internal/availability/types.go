// Package availability is the polling engine: it knows how to ask the
// booking site whether a refuge has places on a date, without hammering the
// site and without re-asking questions it recently had answered.
package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

// Query identifies one (refuge, night) to check. It is a pure value: two
// queries with equal fields are the same query, which is what makes it a
// cache key.
type Query struct {
	RefugeID int
	Date     Date
}

func (q Query) String() string {
	return fmt.Sprintf("refuge %d on %s", q.RefugeID, q.Date)
}

// Snapshot is what one fetch said about one night. PlacesKnown is false
// when the site returned the day but could not give a count; Bookable is
// false when the booking system is not open for the date at all.
type Snapshot struct {
	Places      int
	PlacesKnown bool
	Closed      bool
	Bookable    bool
}

// Status classifies a snapshot for presentation and for the poll loop's
// stop condition.
type Status int

const (
	// StatusOpen means a positive, known number of places.
	StatusOpen Status = iota
	// StatusFull means the site reported zero places. Distinct from a
	// failed fetch: full is an answer, failure is not.
	StatusFull
	// StatusClosed means the refuge is closed that night.
	StatusClosed
	// StatusNotBookable means the booking system is not open for the date
	// yet, or could not state a count. Also distinct from zero places.
	StatusNotBookable
)

func (s Snapshot) Status() Status {
	switch {
	case s.Closed:
		return StatusClosed
	case !s.Bookable || !s.PlacesKnown:
		return StatusNotBookable
	case s.Places == 0:
		return StatusFull
	default:
		return StatusOpen
	}
}

// Result pairs a snapshot with the refuge and date it answers for. Results
// are immutable; a re-check produces a new one.
type Result struct {
	Refuge refuge.Refuge
	Date   Date
	Snapshot
	FetchedAt time.Time
}

// ErrFetchFailed marks any availability fetch that did not produce an
// answer, after local retries. Callers report it and keep going; a failed
// fetch must never read as "fully booked".
var ErrFetchFailed = errors.New("availability fetch failed")

// FetchError carries the query and, when the remote payload could not be
// interpreted, the raw payload for debugging.
type FetchError struct {
	Query   Query
	Reason  string
	Payload []byte
	Err     error

	// permanent marks answers that retrying cannot change, like the site
	// not knowing the refuge at all.
	permanent bool
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.Query, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s", e.Query, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return ErrFetchFailed
}
