package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

// DefaultCapacity bounds the in-memory cache when no capacity is configured.
const DefaultCapacity = 256

// MemoryCache is an in-process result cache with TTL expiry and LRU eviction.
// Expired entries are dropped lazily on access and swept on every write; when
// the capacity is exceeded the least recently used entry goes first.
type MemoryCache struct {
	capacity int
	clock    func() time.Time

	mu      sync.RWMutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
}

// NewMemoryCache creates a cache holding at most capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		clock:    time.Now,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the entry for key. A hit bumps recency, which needs the write
// lock; misses stay on the read lock so they never block each other.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.CacheEntry, bool) {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*models.CacheEntry)
	if entry.Expired(c.clock()) {
		c.removeLocked(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return entry, true
}

// Put stores entry under key, overwriting any previous value. The entry's
// deadline is set from ttl; expired entries are swept and the LRU tail is
// evicted until the cache fits its capacity again.
func (c *MemoryCache) Put(_ context.Context, key string, entry models.CacheEntry, ttl time.Duration) {
	now := c.clock()
	entry.Key = key
	entry.ExpiresAt = now.Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &entry
		c.lru.MoveToFront(el)
	} else {
		c.entries[key] = c.lru.PushFront(&entry)
	}

	c.sweepLocked(now)
	for c.lru.Len() > c.capacity {
		if tail := c.lru.Back(); tail != nil {
			c.removeLocked(tail)
		}
	}
}

// Invalidate removes the entry for key, if present.
func (c *MemoryCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// InvalidateAll empties the cache.
func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*models.CacheEntry).Expired(now) {
			c.removeLocked(el)
		}
		el = prev
	}
}

func (c *MemoryCache) removeLocked(el *list.Element) {
	entry := el.Value.(*models.CacheEntry)
	delete(c.entries, entry.Key)
	c.lru.Remove(el)
}
