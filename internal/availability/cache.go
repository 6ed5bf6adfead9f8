package availability

import (
	"sync"
	"time"
)

type cacheEntry struct {
	snap      Snapshot
	fetchedAt time.Time
	expires   time.Time
}

// Cache holds recent snapshots keyed by query. Entries are replaced
// wholesale and never patched, and nothing is served past its TTL. The
// zero clock is real time; tests inject their own.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[Query]cacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Query]cacheEntry),
	}
}

// Get returns the cached snapshot for q if one exists and is still fresh.
func (c *Cache) Get(q Query) (Snapshot, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[q]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return Snapshot{}, time.Time{}, false
	}
	return e.snap, e.fetchedAt, true
}

// Put stores a snapshot with a fresh TTL, replacing any previous entry.
func (c *Cache) Put(q Query, snap Snapshot, fetchedAt time.Time) {
	c.mu.Lock()
	c.entries[q] = cacheEntry{snap: snap, fetchedAt: fetchedAt, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len reports live entries, counting out anything already expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}
