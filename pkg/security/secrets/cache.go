package secrets

import (
	"sync"
	"time"
)

// CacheConfig configures the secret cache. A zero TTL disables caching.
type CacheConfig struct {
	TTL time.Duration
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache provides thread-safe caching of resolved secrets with a TTL.
type Cache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewCache creates a new secret cache with the given configuration.
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		ttl:     config.TTL,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a cached secret that has not expired.
func (c *Cache) Get(key string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Set stores a secret until the TTL elapses.
func (c *Cache) Set(key, value string) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Size returns the current number of cached entries, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
