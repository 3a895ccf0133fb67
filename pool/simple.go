package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Factory creates and destroys the resources of a pool and their per-entry
// context values.
type Factory[R, C any] interface {
	NewContext() (C, error)
	// NewResource opens the resource for entry number n, with n the number of
	// entries that existed before it.
	NewResource(n int, c C) (R, error)
	CloseResource(r R) error
	CloseContext(c C) error
}

// Stats is a point-in-time view of a SimplePool.
type Stats struct {
	Capacity int
	Size     int // entries created so far
	InUse    int
	Waiting  int
	Closed   bool
}

// SimplePool is a fixed-capacity pool of lazily created entries.
type SimplePool[R, C any] struct {
	capacity int
	factory  Factory[R, C]
	logger   *slog.Logger

	mu      sync.Mutex // guards entries and closed
	waiter  *Waiter
	entries []*entry[R, C]
	closed  bool
}

// NewSimplePool returns a pool of at most capacity entries. It panics if
// capacity is not positive.
func NewSimplePool[R, C any](capacity int, factory Factory[R, C], opts ...Option) *SimplePool[R, C] {
	if capacity <= 0 {
		panic(fmt.Sprintf("pool: capacity must be positive, got %d", capacity))
	}
	if factory == nil {
		panic("pool: factory cannot be nil")
	}
	o := newOptions(opts)
	p := &SimplePool[R, C]{
		capacity: capacity,
		factory:  factory,
		logger:   o.logger.With("pool", o.name),
		entries:  make([]*entry[R, C], 0, capacity),
	}
	p.waiter = NewWaiter(&p.mu)
	return p
}

// Capacity returns the maximum number of entries.
func (p *SimplePool[R, C]) Capacity() int {
	return p.capacity
}

// Borrow checks out an entry, creating one if the pool is below capacity and
// otherwise waiting until one is released. It fails with ErrPoolClosed once
// the pool is closed and with ctx.Err() when ctx is done first. Errors from
// the factory are returned unchanged and no entry is added.
func (p *SimplePool[R, C]) Borrow(ctx context.Context) (*Borrowed[R], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	if len(p.entries) < p.capacity {
		e, err := p.newEntry()
		if err != nil {
			return nil, err
		}
		return p.handle(e), nil
	}

	stopWake := func() bool { return false }
	registered := false
	for {
		for _, e := range p.entries {
			if e.tryAcquire() {
				return p.handle(e), nil
			}
		}

		if !registered && ctx.Done() != nil {
			// The callback needs p.mu, so it cannot run before Wait below
			// has released it.
			stopWake = context.AfterFunc(ctx, func() {
				p.mu.Lock()
				p.waiter.NotifyAll()
				p.mu.Unlock()
			})
			registered = true
			defer stopWake()
		}

		p.waiter.Wait()

		if p.closed {
			return nil, ErrPoolClosed
		}
		if err := ctx.Err(); err != nil {
			// This wakeup may have been meant for a release; pass it on.
			p.waiter.Notify()
			return nil, err
		}
	}
}

// newEntry is called with p.mu held. The entry is returned already acquired.
func (p *SimplePool[R, C]) newEntry() (*entry[R, C], error) {
	n := len(p.entries)

	c, err := p.factory.NewContext()
	if err != nil {
		return nil, err
	}
	r, err := p.factory.NewResource(n, c)
	if err != nil {
		if cerr := p.factory.CloseContext(c); cerr != nil {
			p.logger.Error("failed to close context after resource creation failure", "entry", n, "error", cerr)
		}
		return nil, err
	}

	e := &entry[R, C]{pair: Pair[R, C]{Resource: r, Context: c}, orderNum: n}
	p.entries = append(p.entries, e)
	p.logger.Debug("created pool entry", "entry", n, "capacity", p.capacity)
	return e, nil
}

func (p *SimplePool[R, C]) handle(e *entry[R, C]) *Borrowed[R] {
	return newPooled(e.pair.Resource, func() { p.put(e) })
}

// put releases e and wakes one parked borrower. Notify happens under p.mu so
// it cannot fall between a borrower's scan and its Wait.
func (p *SimplePool[R, C]) put(e *entry[R, C]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.release()
	p.waiter.Notify()
}

// Close marks the pool closed, wakes parked borrowers and closes every entry's
// resource and context. A failure closing one entry is logged and does not
// stop the others. Close must not be called while handles are outstanding.
// Calling Close more than once is harmless.
func (p *SimplePool[R, C]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	entries := p.entries
	p.entries = nil
	p.waiter.NotifyAll()
	p.mu.Unlock()

	for _, e := range entries {
		p.closeEntry(e)
	}
	p.logger.Debug("pool closed", "entries", len(entries))
}

func (p *SimplePool[R, C]) closeEntry(e *entry[R, C]) {
	if err := p.factory.CloseResource(e.pair.Resource); err != nil {
		p.logger.Error("failed to close pooled resource", "entry", e.orderNum, "error", err)
	}
	if err := p.factory.CloseContext(e.pair.Context); err != nil {
		p.logger.Error("failed to close pooled context", "entry", e.orderNum, "error", err)
	}
}

// Stats returns the current counters of the pool.
func (p *SimplePool[R, C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUse := 0
	for _, e := range p.entries {
		if !e.available.Load() {
			inUse++
		}
	}
	return Stats{
		Capacity: p.capacity,
		Size:     len(p.entries),
		InUse:    inUse,
		Waiting:  p.waiter.Waiting(),
		Closed:   p.closed,
	}
}
