package pool

import (
	"fmt"
	"runtime"
)

// ProcessorCounter reports the number of processors available to the process.
type ProcessorCounter interface {
	NumProcessors() int
}

// ProcessorCountFunc adapts a function to ProcessorCounter.
type ProcessorCountFunc func() int

func (f ProcessorCountFunc) NumProcessors() int { return f() }

// RuntimeProcessors counts processors with runtime.NumCPU.
var RuntimeProcessors ProcessorCounter = ProcessorCountFunc(runtime.NumCPU)

// Topology selects how a DoublePool splits readers and writers.
// The zero value is Single.
type Topology struct {
	readers int
}

// Single shares one entry between readers and writers. Use it when the store
// admits a single session at a time.
func Single() Topology {
	return Topology{}
}

// Multi uses one writer and the given number of concurrent readers.
func Multi(readers int) Topology {
	if readers < 1 {
		panic(fmt.Sprintf("pool: multi topology needs at least one reader, got %d", readers))
	}
	return Topology{readers: readers}
}

// Auto picks Single on a single processor and Multi(n-1) otherwise.
func Auto(pc ProcessorCounter) Topology {
	if pc == nil {
		pc = RuntimeProcessors
	}
	n := pc.NumProcessors()
	if n <= 1 {
		return Single()
	}
	return Multi(n - 1)
}

// IsSingle reports whether readers and writers share one entry.
func (t Topology) IsSingle() bool { return t.readers == 0 }

// Readers returns the reader pool capacity, zero for Single.
func (t Topology) Readers() int { return t.readers }

func (t Topology) String() string {
	if t.IsSingle() {
		return "single"
	}
	return fmt.Sprintf("multi(%d)", t.readers)
}
