package pool

import "context"

// DoublePool hands out writer and reader resources according to a Topology.
type DoublePool[R, C any] struct {
	topology Topology
	writers  *SimplePool[R, C]
	readers  *SimplePool[R, C] // same as writers for Single
}

// DoublePoolStats groups the stats of both sides. In the Single topology
// Reader and Writer describe the same pool.
type DoublePoolStats struct {
	Topology string
	Writer   Stats
	Reader   Stats
}

// NewDoublePool builds the pools for t. The writer factory backs the writer
// pool and, in the Single topology, the shared pool; the reader factory is
// only used for Multi and may be nil otherwise.
func NewDoublePool[R, C any](t Topology, writer, reader Factory[R, C], opts ...Option) *DoublePool[R, C] {
	o := newOptions(opts)
	withRole := func(role string) []Option {
		return append(append([]Option(nil), opts...), WithName(o.name+"."+role))
	}

	if t.IsSingle() {
		shared := NewSimplePool(1, writer, withRole("shared")...)
		return &DoublePool[R, C]{topology: t, writers: shared, readers: shared}
	}
	if reader == nil {
		panic("pool: multi topology needs a reader factory")
	}
	return &DoublePool[R, C]{
		topology: t,
		writers:  NewSimplePool(1, writer, withRole("writer")...),
		readers:  NewSimplePool(t.Readers(), reader, withRole("reader")...),
	}
}

// Topology returns the topology the pool was built with.
func (d *DoublePool[R, C]) Topology() Topology {
	return d.topology
}

// BorrowReader checks out a resource for reading. In the Single topology the
// shared entry is returned and is marked as a writer.
func (d *DoublePool[R, C]) BorrowReader(ctx context.Context) (*Borrowed[R], error) {
	b, err := d.readers.Borrow(ctx)
	if err != nil {
		return nil, err
	}
	b.writer = d.topology.IsSingle()
	return b, nil
}

// BorrowWriter checks out the writer resource.
func (d *DoublePool[R, C]) BorrowWriter(ctx context.Context) (*Borrowed[R], error) {
	b, err := d.writers.Borrow(ctx)
	if err != nil {
		return nil, err
	}
	b.writer = true
	return b, nil
}

// Close closes the writer pool and, for Multi, the reader pool.
func (d *DoublePool[R, C]) Close() {
	d.writers.Close()
	if !d.topology.IsSingle() {
		d.readers.Close()
	}
}

// Stats returns the stats of both sides.
func (d *DoublePool[R, C]) Stats() DoublePoolStats {
	w := d.writers.Stats()
	r := w
	if !d.topology.IsSingle() {
		r = d.readers.Stats()
	}
	return DoublePoolStats{Topology: d.topology.String(), Writer: w, Reader: r}
}
