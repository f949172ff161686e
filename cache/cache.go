// cache/cache.go
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a fixed-capacity LRU with an absolute TTL. It is a latency
// optimization only, never a source of authorization truth: entries are
// always safe to drop and rebuild.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New validates capacity and TTL at construction; both must be
// positive. A zero capacity would make the underlying LRU unbounded.
func New[K comparable, V any](capacity int, ttl time.Duration) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](capacity, nil, ttl)}, nil
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
