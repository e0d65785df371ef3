// Package cache is an in-process map whose entries expire.
package cache

import (
	"sync"
	"time"
)

type Cache[V any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry[V]
	now func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[V]{
		ttl: ttl,
		m:   make(map[string]entry[V]),
		now: time.Now,
	}
}

// Get returns the live value for key. Expired entries are left for Purge.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.SetTTL(key, val, c.ttl)
}

// SetTTL stores val with its own lifetime instead of the cache default.
func (c *Cache[V]) SetTTL(key string, val V, ttl time.Duration) {
	c.mu.Lock()
	c.m[key] = entry[V]{val: val, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.m {
		if !now.Before(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Len counts stored entries, including expired ones not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
