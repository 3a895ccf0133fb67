package cache

import (
	"container/list"
	"fmt"
	"sync"
)

// Stats counts the operations seen by an LRU.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Puts      uint64
	Creates   uint64
}

func (s Stats) String() string {
	accesses := s.Hits + s.Misses
	hitPercent := uint64(0)
	if accesses != 0 {
		hitPercent = 100 * s.Hits / accesses
	}
	return fmt.Sprintf("hits=%d,misses=%d,hitRate=%d%%,evictions=%d,puts=%d,creates=%d",
		s.Hits, s.Misses, hitPercent, s.Evictions, s.Puts, s.Creates)
}

// RemoveFunc is called once for every entry leaving the cache. evicted is
// true when the entry was dropped to make room, false when it was removed
// or replaced. newValue is the replacement for a Put over an existing key
// and the zero value otherwise.
type RemoveFunc[K comparable, V any] func(evicted bool, key K, oldValue, newValue V)

type lruItem[K comparable, V any] struct {
	key   K
	value V
}

// removal is a pending RemoveFunc call, run after the lock is released.
type removal[K comparable, V any] struct {
	evicted bool
	key     K
	old     V
	new     V
}

// LRU is a bounded key/value cache. Entries are evicted from the front of an
// ordered list while the total size exceeds the maximum.
//
// By default a hit moves the entry to the back, so the least recently used
// entry goes first. With WithInsertionOrder the order is never touched by
// reads and the oldest inserted entry goes first.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]*list.Element
	order   *list.List // front is evicted first
	size    int
	maxSize int
	stats   Stats

	accessOrder bool
	sizeOf      func(K, V) int
	create      func(K) (V, bool)
	onRemove    RemoveFunc[K, V]
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithSizeOf sets the size of an entry. The default counts every entry as 1.
func WithSizeOf[K comparable, V any](sizeOf func(key K, value V) int) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.sizeOf = sizeOf
	}
}

// WithCreate computes a value on a Get miss. create reports false when it
// has no value for key.
func WithCreate[K comparable, V any](create func(key K) (V, bool)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.create = create
	}
}

// WithOnRemove sets the callback run for every entry leaving the cache.
func WithOnRemove[K comparable, V any](fn RemoveFunc[K, V]) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onRemove = fn
	}
}

// WithInsertionOrder evicts by insertion order instead of recency of use.
func WithInsertionOrder[K comparable, V any]() Option[K, V] {
	return func(c *LRU[K, V]) {
		c.accessOrder = false
	}
}

// NewLRU returns a cache holding at most maxSize units. It panics if maxSize
// is not positive.
func NewLRU[K comparable, V any](maxSize int, opts ...Option[K, V]) *LRU[K, V] {
	if maxSize <= 0 {
		panic(fmt.Sprintf("cache: maxSize must be positive, got %d", maxSize))
	}
	c := &LRU[K, V]{
		items:       make(map[K]*list.Element),
		order:       list.New(),
		maxSize:     maxSize,
		accessOrder: true,
		sizeOf:      func(K, V) int { return 1 },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key. On a miss the create function, if any, is
// consulted outside the lock and its value inserted.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.touch(el)
		c.stats.Hits++
		v := el.Value.(*lruItem[K, V]).value
		c.mu.Unlock()
		return v, true
	}
	c.stats.Misses++
	create := c.create
	c.mu.Unlock()

	var zero V
	if create == nil {
		return zero, false
	}
	created, ok := create(key)
	if !ok {
		return zero, false
	}

	c.mu.Lock()
	c.stats.Creates++
	if el, ok := c.items[key]; ok {
		// Someone else put a value while create ran; theirs wins.
		c.touch(el)
		existing := el.Value.(*lruItem[K, V]).value
		c.mu.Unlock()
		c.notify([]removal[K, V]{{key: key, old: created, new: existing}})
		return existing, true
	}
	c.insert(key, created)
	evicted := c.trim(c.maxSize)
	c.mu.Unlock()

	c.notify(evicted)
	return created, true
}

// Put stores value under key and returns the value it replaced.
func (c *LRU[K, V]) Put(key K, value V) (V, bool) {
	var (
		prev     V
		replaced bool
	)

	c.mu.Lock()
	c.stats.Puts++
	if el, ok := c.items[key]; ok {
		it := el.Value.(*lruItem[K, V])
		prev, replaced = it.value, true
		c.size -= c.safeSizeOf(key, prev)
		it.value = value
		c.size += c.safeSizeOf(key, value)
		c.touch(el)
	} else {
		c.insert(key, value)
	}
	evicted := c.trim(c.maxSize)
	c.mu.Unlock()

	if replaced {
		c.notify([]removal[K, V]{{key: key, old: prev, new: value}})
	}
	c.notify(evicted)
	return prev, replaced
}

// Remove deletes key and returns its value.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	it := c.unlink(el)
	c.mu.Unlock()

	c.notify([]removal[K, V]{{key: key, old: it.value}})
	return it.value, true
}

// Resize changes the maximum size, evicting entries if the cache is now
// over it.
func (c *LRU[K, V]) Resize(maxSize int) {
	if maxSize <= 0 {
		panic(fmt.Sprintf("cache: maxSize must be positive, got %d", maxSize))
	}
	c.mu.Lock()
	c.maxSize = maxSize
	evicted := c.trim(maxSize)
	c.mu.Unlock()

	c.notify(evicted)
}

// EvictAll evicts every entry.
func (c *LRU[K, V]) EvictAll() {
	c.mu.Lock()
	evicted := c.trim(-1)
	c.mu.Unlock()

	c.notify(evicted)
}

// Size returns the total size of the entries.
func (c *LRU[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSize returns the configured maximum size.
func (c *LRU[K, V]) MaxSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a copy of the counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Keys returns the keys in eviction order, next to be evicted first.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruItem[K, V]).key)
	}
	return keys
}

func (c *LRU[K, V]) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("LRU[maxSize=%d,%s]", c.maxSize, c.stats)
}

func (c *LRU[K, V]) touch(el *list.Element) {
	if c.accessOrder {
		c.order.MoveToBack(el)
	}
}

func (c *LRU[K, V]) insert(key K, value V) {
	c.items[key] = c.order.PushBack(&lruItem[K, V]{key: key, value: value})
	c.size += c.safeSizeOf(key, value)
}

func (c *LRU[K, V]) unlink(el *list.Element) *lruItem[K, V] {
	it := c.order.Remove(el).(*lruItem[K, V])
	delete(c.items, it.key)
	c.size -= c.safeSizeOf(it.key, it.value)
	return it
}

// trim evicts from the front until size is at most maxSize. A negative
// maxSize empties the cache.
func (c *LRU[K, V]) trim(maxSize int) []removal[K, V] {
	var evicted []removal[K, V]
	for maxSize < 0 || c.size > maxSize {
		front := c.order.Front()
		if front == nil {
			if maxSize < 0 {
				break
			}
			panic(fmt.Sprintf("cache: size is %d with no entries; sizeOf is inconsistent", c.size))
		}
		it := c.unlink(front)
		c.stats.Evictions++
		evicted = append(evicted, removal[K, V]{evicted: true, key: it.key, old: it.value})
	}
	if c.size < 0 || (c.order.Len() == 0 && c.size != 0) {
		panic(fmt.Sprintf("cache: size is %d with %d entries; sizeOf is inconsistent", c.size, c.order.Len()))
	}
	return evicted
}

func (c *LRU[K, V]) safeSizeOf(key K, value V) int {
	n := c.sizeOf(key, value)
	if n < 0 {
		panic(fmt.Sprintf("cache: negative size %d for key %v", n, key))
	}
	return n
}

func (c *LRU[K, V]) notify(removals []removal[K, V]) {
	if c.onRemove == nil {
		return
	}
	for _, r := range removals {
		c.onRemove(r.evicted, r.key, r.old, r.new)
	}
}
