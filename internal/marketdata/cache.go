package marketdata

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     any
	timestamp time.Time
}

// memoryCache is a small TTL cache keyed by request shape. Snapshots
// are immutable once fetched, so sharing cached values across requests
// is safe.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	enabled bool
}

func newMemoryCache(ttl time.Duration, enabled bool) *memoryCache {
	return &memoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		enabled: enabled,
	}
}

func (c *memoryCache) get(key string) (any, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) set(key string, value any) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, timestamp: time.Now()}
	c.mu.Unlock()
}
