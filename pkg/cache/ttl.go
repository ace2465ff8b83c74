package cache

import (
	"sync"
	"time"
)

// Cache is a minimal TTL cache for hot-path lookups. Implementations must be
// safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Invalidate(key K)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in memory with per-entry expiry. Expired entries are
// dropped lazily on Get and in bulk by Cleanup; pair it with a periodic sweep
// when the key space is unbounded.
type TTLCache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]entry[V]
	defaultTTL time.Duration
}

// DefaultTTL applies when Set receives a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// New constructs a TTLCache. A non-positive defaultTTL falls back to 24 hours.
func New[K comparable, V any](defaultTTL time.Duration) *TTLCache[K, V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TTLCache[K, V]{
		items:      make(map[K]entry[V]),
		defaultTTL: defaultTTL,
	}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.Invalidate(key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value. A non-positive ttl uses the cache default.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a cached entry.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Cleanup drops every expired entry and returns how many were removed.
func (c *TTLCache[K, V]) Cleanup() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Noop always misses and ignores writes. Used where caching is disabled.
type Noop[K comparable, V any] struct{}

// Get always returns a miss.
func (Noop[K, V]) Get(K) (V, bool) {
	var zero V
	return zero, false
}

// Set is a no-op.
func (Noop[K, V]) Set(K, V, time.Duration) {}

// Invalidate is a no-op.
func (Noop[K, V]) Invalidate(K) {}
