package pool

import "sync/atomic"

// Pair is a resource together with the context value created alongside it.
// Both are created and closed in lockstep.
type Pair[R, C any] struct {
	Resource R
	Context  C
}

// entry is one slot of a SimplePool. available is only flipped by CAS: free to
// held by tryAcquire, held to free by release.
type entry[R, C any] struct {
	pair      Pair[R, C]
	orderNum  int
	available atomic.Bool
}

func (e *entry[R, C]) tryAcquire() bool {
	return e.available.CompareAndSwap(true, false)
}

// release marks the entry free. Releasing an entry that is not held means a
// handle was returned twice.
func (e *entry[R, C]) release() {
	if !e.available.CompareAndSwap(false, true) {
		panic("pool: release of an entry that is not held")
	}
}
