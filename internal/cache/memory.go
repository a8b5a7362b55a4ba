package cache

import (
	"sync"
	"time"
)

// entry holds cached bytes with an expiration time.
type entry struct {
	data       []byte
	expiration time.Time
}

// MemoryCache is a simple TTL cache for small binary assets (cover art).
type MemoryCache struct {
	items map[string]entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]entry),
		ttl:   ttl,
	}

	go c.cleanupExpired()

	return c
}

// Get returns the cached bytes for key, if present and not expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mutex.RLock()
	e, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists || time.Now().After(e.expiration) {
		return nil, false
	}
	return e.data, true
}

// Set stores bytes under key with the cache's TTL.
func (c *MemoryCache) Set(key string, data []byte) {
	c.mutex.Lock()
	c.items[key] = entry{data: data, expiration: time.Now().Add(c.ttl)}
	c.mutex.Unlock()
}

// Delete removes a key immediately.
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	delete(c.items, key)
	c.mutex.Unlock()
}

// cleanupExpired periodically evicts expired entries.
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mutex.Lock()
		for key, e := range c.items {
			if now.After(e.expiration) {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}
