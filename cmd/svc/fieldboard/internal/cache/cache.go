// Package cache is a small in-process TTL cache for dashboard query
// results. Entries expire; there is no size bound since the key space
// is the set of filter combinations in active use.
package cache

import (
	"sync"
	"time"

	"github.com/tecnotop/backend/libs/clock"
)

type entry struct {
	value   interface{}
	expires time.Time
}

type Cache struct {
	clk clock.Clock

	mu      sync.Mutex
	entries map[string]entry
}

func New(clk clock.Clock) *Cache {
	return &Cache{
		clk:     clk,
		entries: make(map[string]entry),
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clk.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expires: c.clk.Now().Add(ttl)}
}

// Forget drops the entry for key if present.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Do returns the cached value for key, or runs fetch and caches the
// result for ttl. Errors are not cached.
func (c *Cache) Do(key string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}
