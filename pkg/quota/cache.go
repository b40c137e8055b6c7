package quota

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mercator-hq/converse/pkg/quota/storage"
)

// DefaultComputeTimeout bounds a shared usage read, which runs detached from
// the caller that started it.
const DefaultComputeTimeout = 10 * time.Second

// Usage is a cached current-month usage reading.
type Usage struct {
	Tokens    int64
	Timestamp time.Time
}

type cacheEntry struct {
	usage     Usage
	month     string
	expiresAt time.Time
}

// ComputeFunc loads usage on a cache miss.
type ComputeFunc func(ctx context.Context) (Usage, error)

// Cache is a TTL-bounded, per-company usage cache. It is safe for concurrent
// use.
//
// Concurrent misses for the same company share one ComputeFunc call. Each
// Invalidate bumps the company's generation; a computation that started
// before the bump neither joins later callers nor stores its result, so an
// invalidation always forces a fresh read. Entries are also bound to the
// UTC month they were read in and miss once the month rolls over.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	gens    map[string]uint64
	epoch   uint64

	group          singleflight.Group
	computeTimeout time.Duration
	now            func() time.Time
	metrics        *Metrics
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),

		computeTimeout: DefaultComputeTimeout,
		now:            time.Now,
	}
}

// SetMetrics attaches metrics; nil disables them.
func (c *Cache) SetMetrics(m *Metrics) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// GetOrCompute returns the cached usage for companyID if it has not expired
// and was read in the current month, otherwise calls compute and caches the
// result for ttl. The bool result reports a cache hit. Errors are not cached.
// A non-positive ttl disables storing.
//
// compute receives a context that keeps ctx's values but not its
// cancellation. A caller whose ctx ends stops waiting with ctx.Err() while
// the computation continues for the other callers.
func (c *Cache) GetOrCompute(ctx context.Context, companyID string, ttl time.Duration, compute ComputeFunc) (Usage, bool, error) {
	c.mu.Lock()
	now := c.now()
	month := storage.MonthKey(now)
	if e, ok := c.entries[companyID]; ok && now.Before(e.expiresAt) && e.month == month {
		m := c.metrics
		c.mu.Unlock()
		m.recordCacheHit()
		return e.usage, true, nil
	}
	gen, epoch := c.gens[companyID], c.epoch
	timeout := c.computeTimeout
	m := c.metrics
	c.mu.Unlock()
	m.recordCacheMiss()

	key := companyID + "#" + month + "#" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		u, err := compute(cctx)
		if err != nil {
			return Usage{}, err
		}

		if ttl > 0 {
			c.mu.Lock()
			if c.gens[companyID] == gen && c.epoch == epoch {
				c.entries[companyID] = cacheEntry{usage: u, month: month, expiresAt: c.now().Add(ttl)}
			}
			c.mu.Unlock()
		}
		return u, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Usage{}, false, res.Err
		}
		return res.Val.(Usage), false, nil
	case <-ctx.Done():
		return Usage{}, false, ctx.Err()
	}
}

// Invalidate drops the entry for companyID and discards any computation
// already in flight for it.
func (c *Cache) Invalidate(companyID string) {
	c.mu.Lock()
	delete(c.entries, companyID)
	c.gens[companyID]++
	m := c.metrics
	c.mu.Unlock()
	m.recordCacheInvalidation()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.epoch++
}

// Sweep removes expired entries and returns how many were removed.
// Expired entries are never served, so sweeping only reclaims memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
