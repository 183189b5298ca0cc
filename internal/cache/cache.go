// Package cache is the read-through, TTL-bounded local copy of hydrated
// game sessions. Entries can be dropped at any time; the store stays the
// source of truth.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is how long an entry is considered fresh.
const DefaultTTL = 5 * time.Second

// Cache maps game ids to values with a freshness timestamp. A janitor
// sweeps expired entries at twice the TTL.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[V any] struct {
	value   V
	addedAt time.Time
}

// New creates a cache with the given TTL (DefaultTTL when zero).
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
	}
}

// Get returns the cached value if present and fresh.
func (c *Cache[V]) Get(id string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || time.Since(e.addedAt) > c.ttl {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Peek returns the cached value even when stale. Used for degraded reads
// when the store is unreachable.
func (c *Cache[V]) Peek(id string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put refreshes the entry for id.
func (c *Cache[V]) Put(id string, v V) {
	c.mu.Lock()
	c.entries[id] = &entry[V]{value: v, addedAt: time.Now()}
	c.mu.Unlock()
}

// Drop removes the entry, typically on a peer's invalidation message.
func (c *Cache[V]) Drop(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Keys returns the ids of all resident entries, fresh or stale.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of resident entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the fraction of lookups served from cache.
func (c *Cache[V]) HitRate() float64 {
	h, m := c.Stats()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// Run sweeps expired entries until ctx ends. The sweep interval is twice
// the TTL.
func (c *Cache[V]) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl * 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if time.Since(e.addedAt) > c.ttl {
			delete(c.entries, id)
		}
	}
}
