// Package topk tracks the most used statements with a sliding count-min
// sketch. A Tracker is a stmtcache.Observer.
package topk

import (
	"sync"

	"github.com/keilerkonzept/topk/sliding"
)

// Params configures a Tracker.
type Params struct {
	K          int // statements reported by Top
	WindowSize int // ticks kept in the window
	Width      int
	Depth      int
	// TickSize is the number of statement uses per tick.
	TickSize uint64
	// MaxSharePercent marks a statement as hot when its count exceeds this
	// share of the window capacity. Zero disables hot detection.
	MaxSharePercent int
}

// DefaultParams suits a process running a few hundred distinct statements.
var DefaultParams = Params{
	K:               10,
	WindowSize:      10,
	Width:           1024,
	Depth:           3,
	TickSize:        1000,
	MaxSharePercent: 50,
}

// Item is one statement and its count within the window.
type Item struct {
	SQL   string
	Count uint32
}

type Tracker struct {
	mu        sync.Mutex
	sketch    *sliding.Sketch
	tickSize  uint64
	tickReq   uint64 // uses since the last tick
	tickCount uint64
	threshold uint32
	onHot     func(sql string, count uint32)
}

// New creates a Tracker. onHot, if not nil, is called at each tick for every
// statement above the hot threshold, outside the tracker lock.
func New(p Params, onHot func(sql string, count uint32)) *Tracker {
	if p.K < 1 || p.WindowSize < 1 {
		panic("topk: K and WindowSize must be positive")
	}
	if p.TickSize == 0 {
		p.TickSize = DefaultParams.TickSize
	}

	var opts []sliding.Option
	if p.Width > 0 {
		opts = append(opts, sliding.WithWidth(p.Width))
	}
	if p.Depth > 0 {
		opts = append(opts, sliding.WithDepth(p.Depth))
	}

	windowCapacity := uint64(p.WindowSize) * p.TickSize
	return &Tracker{
		sketch:    sliding.New(p.K, p.WindowSize, opts...),
		tickSize:  p.TickSize,
		threshold: uint32(windowCapacity * uint64(p.MaxSharePercent) / 100),
		onHot:     onHot,
	}
}

func (t *Tracker) Hit(sql string)  { t.incr(sql) }
func (t *Tracker) Miss(sql string) { t.incr(sql) }
func (t *Tracker) Evicted(string)  {}

func (t *Tracker) incr(sql string) {
	t.mu.Lock()
	t.sketch.Incr(sql)
	t.tickReq++
	if t.tickReq < t.tickSize {
		t.mu.Unlock()
		return
	}

	t.sketch.Tick()
	t.tickCount++
	t.tickReq = 0
	var hot []Item
	if t.threshold > 0 && t.onHot != nil {
		for _, item := range t.sketch.SortedSlice() {
			if item.Count <= t.threshold {
				break
			}
			hot = append(hot, Item{SQL: item.Item, Count: item.Count})
		}
	}
	t.mu.Unlock()

	for _, item := range hot {
		t.onHot(item.SQL, item.Count)
	}
}

// Top returns up to K statements, most used first.
func (t *Tracker) Top() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := t.sketch.SortedSlice()
	items := make([]Item, 0, len(sorted))
	for _, item := range sorted {
		if item.Count == 0 {
			continue
		}
		items = append(items, Item{SQL: item.Item, Count: item.Count})
	}
	return items
}

// Ticks returns the number of ticks processed so far.
func (t *Tracker) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickCount
}

// SizeBytes reports the memory used by the sketch.
func (t *Tracker) SizeBytes() int {
	return t.sketch.SizeBytes()
}
