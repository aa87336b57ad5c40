package search

import (
	"sync"
	"time"
)

// responseCache is a TTL cache of completed responses keyed by query text.
// Only fully successful responses are cached; anything carrying errors is
// recomputed on the next request.
type responseCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	response *Response
	expires  time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.response, true
}

func (c *responseCache) set(key string, response *Response) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{response: response, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
