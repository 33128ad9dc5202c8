package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an expiring in-process cache. It is safe for concurrent use
// by batch workers.
type MemoryCache struct {
	cache  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoryCache creates a cache whose entries live for ttl
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cleanup := ttl * 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &MemoryCache{cache: gocache.New(ttl, cleanup)}
}

// Get returns the cached text for key
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		c.hits.Add(1)
		return val.([]byte), true
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores text under key with the default expiration
func (c *MemoryCache) Set(key string, text []byte) {
	c.cache.SetDefault(key, text)
}

// Delete removes key
func (c *MemoryCache) Delete(key string) {
	c.cache.Delete(key)
}

// Stats reports hits, misses and live entries
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.ItemCount(),
	}
}
