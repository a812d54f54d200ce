// Package cache provides the size- and TTL-bounded quote cache that sits in
// front of each base venue quoter.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"orren/internal/model"
)

// Cache is a least-recently-used cache with per-entry TTL invalidation.
// Quotes are cloned on both Set and Get so the stored entry is never
// aliased by a request path: callers mutate their copies (scoring, pricing)
// without touching the cached value or each other.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List

	now func() time.Time
}

type entry struct {
	key       string
	value     *model.QuoteResponse
	createdAt time.Time
}

// New builds a cache bounded to capacity entries, each valid for ttl.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Key builds the cache key for a venue, asset pair, and amount.
func Key(venue string, src, dst model.Currency, amount string) string {
	return strings.Join([]string{venue, src.Key(), dst.Key(), amount}, ":")
}

// Get returns a copy of the cached quote for key, or nil when absent or
// expired. Expired entries are removed on read.
func (c *Cache) Get(key string) *model.QuoteResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil
	}
	ent := elem.Value.(*entry)
	if c.now().Sub(ent.createdAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil
	}
	c.order.MoveToFront(elem)
	return ent.value.Clone()
}

// Set stores a copy of the quote under key, evicting the least-recently-used
// entry when the cache is at capacity.
func (c *Cache) Set(key string, value *model.QuoteResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value = value.Clone()

	if elem, ok := c.entries[key]; ok {
		elem.Value = &entry{key: key, value: value, createdAt: c.now()}
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, value: value, createdAt: c.now()})
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
