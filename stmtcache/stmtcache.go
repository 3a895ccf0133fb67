// Package stmtcache keeps a bounded set of prepared statements alive for one
// session so that repeated SQL is compiled once.
//
// A Cache belongs to a single session and is only used by the goroutine that
// currently holds that session.
package stmtcache

import (
	"log/slog"

	"github.com/caasmo/litepool/cache"
)

// Factory compiles, resets and disposes statements of type S for one
// connection.
type Factory[S any] interface {
	Compile(sql string) (S, error)
	// Reset readies a statement for reuse and clears its bindings.
	Reset(stmt S) error
	Finalize(stmt S) error
}

// Order selects the eviction order of a Cache.
type Order string

const (
	// OrderLRU evicts the least recently used statement.
	OrderLRU Order = "lru"
	// OrderFIFO evicts the least recently compiled statement.
	OrderFIFO Order = "fifo"
)

// Options configures a Cache. The zero value is usable.
type Options struct {
	Order      Order
	Normalizer *Normalizer
	Observer   Observer
	Logger     *slog.Logger
}

// Cache maps normalized SQL text to a compiled statement.
type Cache[S any] struct {
	factory  Factory[S]
	lru      *cache.LRU[string, S] // nil when caching is disabled
	norm     *Normalizer
	observer Observer
	logger   *slog.Logger
}

// New returns a cache of capacity statements. A capacity of zero disables
// caching: every GetOrCreate compiles a fresh statement that the caller
// disposes of by closing the handle.
func New[S any](capacity int, factory Factory[S], opts Options) *Cache[S] {
	if capacity < 0 {
		panic("stmtcache: negative capacity")
	}
	c := &Cache[S]{
		factory:  factory,
		norm:     opts.Normalizer,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if capacity == 0 {
		return c
	}

	lruOpts := []cache.Option[string, S]{cache.WithOnRemove(c.onRemove)}
	if opts.Order == OrderFIFO {
		lruOpts = append(lruOpts, cache.WithInsertionOrder[string, S]())
	}
	c.lru = cache.NewLRU(capacity, lruOpts...)
	return c
}

func (c *Cache[S]) onRemove(evicted bool, key string, old, _ S) {
	if evicted {
		c.observer.Evicted(key)
	}
	if err := c.factory.Finalize(old); err != nil {
		c.logger.Error("failed to finalize cached statement", "sql", key, "error", err)
	}
}

// GetOrCreate returns the statement for sql. A cached statement is reset
// before it is returned. On a miss the statement is compiled and, when
// caching is enabled, inserted; a compile error is returned unchanged and
// nothing is inserted.
func (c *Cache[S]) GetOrCreate(sql string) (*Handle[S], error) {
	key := c.norm.Normalize(sql)

	if c.lru == nil {
		c.observer.Miss(key)
		stmt, err := c.factory.Compile(sql)
		if err != nil {
			return nil, err
		}
		return &Handle[S]{Stmt: stmt, finalize: c.factory.Finalize}, nil
	}

	if stmt, ok := c.lru.Get(key); ok {
		err := c.factory.Reset(stmt)
		if err == nil {
			c.observer.Hit(key)
			return &Handle[S]{Stmt: stmt, cached: true}, nil
		}
		// A statement that cannot be reset is dropped and recompiled.
		c.logger.Debug("dropping statement that failed to reset", "sql", key, "error", err)
		c.lru.Remove(key)
	}

	c.observer.Miss(key)
	stmt, err := c.factory.Compile(sql)
	if err != nil {
		return nil, err
	}
	c.lru.Put(key, stmt)
	return &Handle[S]{Stmt: stmt, cached: true}, nil
}

// Len returns the number of cached statements.
func (c *Cache[S]) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats returns the counters of the underlying LRU. Disabled caches report
// zero.
func (c *Cache[S]) Stats() cache.Stats {
	if c.lru == nil {
		return cache.Stats{}
	}
	return c.lru.Stats()
}

// Keys returns the cached keys, next to be evicted first.
func (c *Cache[S]) Keys() []string {
	if c.lru == nil {
		return nil
	}
	return c.lru.Keys()
}

// Clear finalizes and drops every cached statement.
func (c *Cache[S]) Clear() {
	if c.lru != nil {
		c.lru.EvictAll()
	}
}

// Handle is a statement returned by GetOrCreate. Close must be called once
// the statement is no longer used; it disposes of uncached statements and is
// a no-op for cached ones.
type Handle[S any] struct {
	Stmt S

	cached   bool
	finalize func(S) error
}

// Cached reports whether the statement is owned by the cache.
func (h *Handle[S]) Cached() bool { return h.cached }

// Close finalizes an uncached statement. It is safe to call more than once.
func (h *Handle[S]) Close() error {
	if h.cached || h.finalize == nil {
		return nil
	}
	fn := h.finalize
	h.finalize = nil
	return fn(h.Stmt)
}
