package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time // zero means no expiry
}

func (e *Entry[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a simple in-memory cache with optional TTL and a size bound.
// When full, Set evicts expired entries first and otherwise an arbitrary one.
type Cache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]*Entry[V]
	maxItems int
	now      func() time.Time
}

// New creates a new cache; maxItems <= 0 means unbounded
func New[K comparable, V any](maxItems int) *Cache[K, V] {
	return &Cache[K, V]{items: map[K]*Entry[V]{}, maxItems: maxItems, now: time.Now}
}

// Set stores a value; ttl <= 0 keeps it until deleted or evicted
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictLocked(now)
	}

	entry := &Entry[V]{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	c.items[key] = entry
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero V
	entry, exists := c.items[key]
	if !exists || entry.expired(c.now()) {
		return zero, false
	}
	return entry.Value, true
}

// Delete removes a key from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[K]*Entry[V]{}
}

// Len returns the number of stored entries, expired ones included
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) evictLocked(now time.Time) {
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
		}
	}
	if len(c.items) < c.maxItems {
		return
	}
	for key := range c.items {
		delete(c.items, key)
		return
	}
}

// InvalidatePrefix removes all string keys starting with prefix
func InvalidatePrefix[V any](c *Cache[string, V], prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}
