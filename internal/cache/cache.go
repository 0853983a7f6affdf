// Package cache provides TTL caching for resolved permission sets
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is the permission cache abstraction. Implementations are injected
// per service instance rather than shared as package-level state, so tests
// and multi-tenant deployments get isolated caches.
type Cache interface {
	Get(key string) ([]string, bool)
	Set(key string, permissions []string)
	Delete(key string)
	Clear()
	Stats() Stats
}

// Stats contains cache statistics
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// LRU is an in-memory LRU cache with per-entry TTL. Expiry is evaluated
// lazily at read time; there is no background sweep.
type LRU struct {
	capacity int
	ttl      time.Duration

	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex

	hits   atomic.Uint64
	misses atomic.Uint64
}

type entry struct {
	key         string
	permissions []string
	expiresAt   time.Time
}

// NewLRU creates an LRU cache holding up to capacity entries for ttl each
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached permission set for key, if present and unexpired
func (c *LRU) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiresAt) {
		c.remove(elem)
		c.misses.Add(1)
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return ent.permissions, true
}

// Set stores a permission set under key, resetting its TTL
func (c *LRU) Set(key string, permissions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.permissions = permissions
		ent.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}

	elem := c.order.PushFront(&entry{
		key:         key,
		permissions: permissions,
		expiresAt:   time.Now().Add(c.ttl),
	})
	c.items[key] = elem
}

// Delete invalidates a single key
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Clear invalidates every entry
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns hit/miss counters and current size
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	s := Stats{Size: size, Hits: hits, Misses: misses}
	if total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// remove must be called with c.mu held
func (c *LRU) remove(elem *list.Element) {
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.order.Remove(elem)
}
