package status

import (
	"sync"
	"time"
)

type cacheEntry struct {
	status    ProcessingStatus
	fetchedAt time.Time
}

// Cache maps survey id → last-known status with its fetch time. Entries
// are only ever replaced by a newer fetch, never proactively evicted;
// last write wins.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	now func() time.Time // injectable for tests
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the cached status for id if it was fetched within ttl.
func (c *Cache) Get(id string, ttl time.Duration) (ProcessingStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || c.now().Sub(e.fetchedAt) >= ttl {
		return ProcessingStatus{}, false
	}
	return e.status, true
}

// Put overwrites the entry for id with st, stamped now.
func (c *Cache) Put(id string, st ProcessingStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cacheEntry{status: st, fetchedAt: c.now()}
}
