// Package embedcache caches minted embed URLs keyed by provider, resource
// and filter state. Entries expire by TTL on read; there is no sweeper and
// no single-flight, a stale entry is just a miss and duplicate concurrent
// mints are accepted (the result is idempotent).
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Entry is one cached embed.
type Entry struct {
	URL       string
	IframeURL string
	ExpiresAt time.Time
}

// Key derives the cache key for a (provider, resource, filters) triple.
// encoding/json marshals map keys sorted, so equal filter maps hash
// identically; any filter change produces a new key and orphans the old
// entry until its TTL lapses.
func Key(provider, resourceID string, filters map[string]any) string {
	if filters == nil {
		filters = map[string]any{}
	}
	canonical, err := json.Marshal(filters)
	if err != nil {
		// Filter maps come from our own shaping code; a marshal failure
		// means a non-JSON value leaked in. Degrade to an uncacheable key.
		canonical = []byte(err.Error())
	}
	sum := sha256.Sum256(canonical)
	return provider + ":" + resourceID + ":" + hex.EncodeToString(sum[:])[:16]
}

// Cache is a concurrency-safe embed cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache using the real clock.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injected clock for tests.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get returns the entry for key while it is still valid. An expired entry
// is deleted and reported as a miss.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		delete(c.entries, key)
		return Entry{}, false
	}
	return entry, true
}

// Set stores or replaces the entry for key.
func (c *Cache) Set(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
