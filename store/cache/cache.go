// Package cache provides the in-process cache used by the store for hot
// session lookups. It is a small LRU with per-entry TTL; unrelated sessions
// never contend beyond the cache's own mutex.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds the cache configuration.
type Config struct {
	DefaultTTL time.Duration
	MaxItems   int
}

// Cache is an LRU cache with TTL support.
type Cache struct {
	config Config
	mu     sync.Mutex

	items map[string]*entry
	order *list.List
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
	element   *list.Element
}

// New creates a new cache.
func New(config Config) *Cache {
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	return &Cache{
		config: config,
		items:  make(map[string]*entry),
		order:  list.New(),
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(c.config.DefaultTTL)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.items) >= c.config.MaxItems {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry))
	}

	e := &entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.config.DefaultTTL),
	}
	e.element = c.order.PushFront(e)
	c.items[key] = e
}

// Delete removes a key from the cache. Missing keys are a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) remove(e *entry) {
	c.order.Remove(e.element)
	delete(c.items, e.key)
}
