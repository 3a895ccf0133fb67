// Package cache holds the caches used around pooled sessions: the bounded
// LRU that keeps prepared statements per session and the interface for
// process-wide concurrent caches.
package cache

import "time"

// Cache is a concurrent, cost-bounded cache shared between goroutines.
// Writes may be applied asynchronously, so a Set is not guaranteed to be
// visible to an immediate Get.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache
	Get(key K) (V, bool)

	// Set stores a value with cost, returning true if it was accepted
	Set(key K, value V, cost int64) bool

	// SetWithTTL stores a value with cost and TTL, returning true if it was accepted
	SetWithTTL(key K, value V, cost int64, ttl time.Duration) bool
}
