package ristretto

import (
	"fmt"
	"time"

	"github.com/caasmo/litepool/cache"
	"github.com/dgraph-io/ristretto/v2"
)

// Cache adapts a ristretto cache with string keys to cache.Cache.
type Cache[V any] struct {
	cache *ristretto.Cache[string, V]
}

var _ cache.Cache[string, any] = (*Cache[any])(nil)

func (rc *Cache[V]) Get(key string) (V, bool) {
	return rc.cache.Get(key)
}

func (rc *Cache[V]) Set(key string, value V, cost int64) bool {
	return rc.cache.Set(key, value, cost)
}

func (rc *Cache[V]) SetWithTTL(key string, value V, cost int64, ttl time.Duration) bool {
	return rc.cache.SetWithTTL(key, value, cost, ttl)
}

// Wait blocks until buffered writes have been applied.
func (rc *Cache[V]) Wait() {
	rc.cache.Wait()
}

// Close stops the cache's background goroutines.
func (rc *Cache[V]) Close() {
	rc.cache.Close()
}

type sizing struct {
	numCounters int64
	maxCost     int64
}

// levels maps the accepted size levels to ristretto settings. Costs are in
// bytes of cached text.
var levels = map[string]sizing{
	"small":      {numCounters: 1e4, maxCost: 1 << 20}, // 1MB
	"medium":     {numCounters: 1e5, maxCost: 1 << 23}, // 8MB
	"large":      {numCounters: 1e6, maxCost: 1 << 26}, // 64MB
	"very-large": {numCounters: 1e7, maxCost: 1 << 29}, // 512MB
}

// ValidLevel reports whether level names a known cache size.
func ValidLevel(level string) bool {
	_, ok := levels[level]
	return ok
}

// New creates a cache sized by level: "small", "medium", "large" or
// "very-large".
func New[V any](level string) (*Cache[V], error) {
	s, ok := levels[level]
	if !ok {
		return nil, fmt.Errorf("ristretto: unknown cache level %q", level)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: s.numCounters, // keys to track frequency of, ~10x the expected items
		MaxCost:     s.maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	return &Cache[V]{cache: c}, nil
}
