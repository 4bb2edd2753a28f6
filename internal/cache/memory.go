// Package cache provides a small in-process cache for deployments that run
// without Redis, such as the lite MCP server.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded LRU with per-cache TTL expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, interface{}]
	ttl time.Duration
}

// NewMemoryCache creates a cache holding at most maxItems entries, each
// expiring after ttl.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}

	return &MemoryCache{
		lru: expirable.NewLRU[string, interface{}](maxItems, nil, ttl),
		ttl: ttl,
	}, nil
}

// Get returns the cached value and whether it was present.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	return c.lru.Get(key)
}

// Set stores a value under key.
func (c *MemoryCache) Set(key string, value interface{}) {
	c.lru.Add(key, value)
}

// Delete removes key from the cache.
func (c *MemoryCache) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}

// TTL returns the configured entry lifetime.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}
