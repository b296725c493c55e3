// Package cache provides a bounded in-memory cache with TTL expiry and
// LRU eviction. It is a read-through optimization: callers must behave
// identically with the cache disabled or empty.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Cache is a fixed-capacity map with per-entry TTL and least-recently-used
// eviction. The zero value is not usable; construct with New. Safe for
// concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// New creates a cache holding at most capacity entries, each valid for ttl
// after insertion. Capacity must be positive.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value for key if present and unexpired, and marks
// it most recently used. Expired entries are removed on access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.expired++
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Put stores value under key, refreshing the TTL. If the cache is full the
// least recently used entry is evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}

	elem := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem
}

// Invalidate removes key from the cache if present.
func (c *Cache[K, V]) Invalidate(key K) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Purge removes all entries but keeps the counters.
func (c *Cache[K, V]) Purge() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been removed on access.
func (c *Cache[K, V]) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
		Size:      c.order.Len(),
		Capacity:  c.capacity,
	}
}

// caller must hold c.mu
func (c *Cache[K, V]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.order.Remove(elem)
}
