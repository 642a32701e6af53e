package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// responseCache absorbs bursty read traffic on the query endpoints with a
// short-lived cache of rendered response bodies, keyed by a hash of the
// full request. Population is write-behind: the response is sent first and
// the cache filled from a goroutine.
type responseCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	body    []byte
	written time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[uint64]cacheEntry),
	}
}

// cacheKey hashes method plus full request URI, so distinct query strings
// get distinct entries.
func cacheKey(r *http.Request) uint64 {
	return xxhash.Sum64String(r.Method + " " + r.URL.RequestURI())
}

func (c *responseCache) Get(key uint64) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(entry.written) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.body, true
}

func (c *responseCache) Put(key uint64, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps the map bounded without a janitor goroutine.
	for k, e := range c.entries {
		if time.Since(e.written) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{body: body, written: time.Now()}
}
