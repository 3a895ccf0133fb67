package pool

import "sync/atomic"

// Kind tags the two variants of Borrowed.
type Kind uint8

const (
	// KindPooled handles return their entry to the pool on Close.
	KindPooled Kind = iota
	// KindUnpooled handles wrap a resource owned elsewhere; Close does nothing.
	KindUnpooled
)

func (k Kind) String() string {
	switch k {
	case KindPooled:
		return "pooled"
	case KindUnpooled:
		return "unpooled"
	default:
		return "unknown"
	}
}

// Borrowed is the handle a caller holds while using a resource. The resource
// must not be used after Close.
type Borrowed[R any] struct {
	kind   Kind
	value  R
	writer bool

	// pooled variant only
	giveBack func()
	consumed atomic.Bool
}

// Unpooled wraps a resource whose lifecycle is owned by the caller so that it
// can be passed where a Borrowed is expected.
func Unpooled[R any](value R, writer bool) *Borrowed[R] {
	return &Borrowed[R]{kind: KindUnpooled, value: value, writer: writer}
}

func newPooled[R any](value R, giveBack func()) *Borrowed[R] {
	return &Borrowed[R]{kind: KindPooled, value: value, giveBack: giveBack}
}

// Value returns the borrowed resource.
func (b *Borrowed[R]) Value() R { return b.value }

// IsWriter reports whether the resource may be used for writes.
func (b *Borrowed[R]) IsWriter() bool { return b.writer }

// Kind reports which variant b is.
func (b *Borrowed[R]) Kind() Kind { return b.kind }

// IsOpen reports whether Close has not yet returned the resource. Unpooled
// handles are always open.
func (b *Borrowed[R]) IsOpen() bool {
	switch b.kind {
	case KindPooled:
		return !b.consumed.Load()
	case KindUnpooled:
		return true
	default:
		panic("pool: unknown borrowed kind")
	}
}

// Close returns a pooled resource to its pool. Only the first call has an
// effect; later calls are no-ops.
func (b *Borrowed[R]) Close() {
	switch b.kind {
	case KindPooled:
		if !b.consumed.CompareAndSwap(false, true) {
			return
		}
		b.giveBack()
	case KindUnpooled:
	default:
		panic("pool: unknown borrowed kind")
	}
}
