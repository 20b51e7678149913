// Package cache provides an in-memory TTL cache with request coalescing.
// It backs the provider search preview endpoint so repeated identical
// queries within the TTL window hit the providers once.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL-bounded key/value store. Concurrent computations for the
// same key are coalesced into a single call.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value for key, if any.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.pruneLocked()
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until the
// next prune.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key or computes and stores it.
// Concurrent callers for the same key share one compute call; a compute
// error is returned to all of them and nothing is cached.
func (c *Cache) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a racing caller may have stored it
		// between our miss and the flight starting.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// pruneLocked drops expired entries. Caller holds mu.
func (c *Cache) pruneLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
