package topk

import (
	"strings"
	"sync"
	"testing"

	"github.com/caasmo/litepool/stmtcache"
)

var _ stmtcache.Observer = (*Tracker)(nil)

// TestNew_Initialization checks that the constructor derives the hot
// threshold from the window capacity.
func TestNew_Initialization(t *testing.T) {
	params := Params{K: 5, WindowSize: 4, Width: 256, Depth: 3, TickSize: 100, MaxSharePercent: 25}

	tr := New(params, nil)

	if tr.tickSize != params.TickSize {
		t.Errorf("Expected tickSize to be %d, but got %d", params.TickSize, tr.tickSize)
	}
	if tr.threshold != 100 {
		t.Errorf("Expected threshold to be 100, but got %d", tr.threshold)
	}
	if tr.SizeBytes() <= 0 {
		t.Error("Expected a positive sketch size")
	}
}

func TestNew_InvalidParams(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for K = 0")
		}
	}()
	New(Params{K: 0, WindowSize: 1}, nil)
}

func TestTop_OrdersByUse(t *testing.T) {
	tr := New(Params{K: 3, WindowSize: 2, TickSize: 10_000}, nil)

	for i := 0; i < 50; i++ {
		tr.Hit("SELECT hot")
	}
	for i := 0; i < 5; i++ {
		tr.Miss("SELECT cold")
	}
	tr.Evicted("SELECT cold")

	top := tr.Top()
	if len(top) != 2 {
		t.Fatalf("Top() returned %d items, want 2: %v", len(top), top)
	}
	if top[0].SQL != "SELECT hot" || top[1].SQL != "SELECT cold" {
		t.Errorf("Top() order = %v", top)
	}
	if top[0].Count < 50 {
		t.Errorf("hot count = %d, want at least 50", top[0].Count)
	}
}

func TestTick_ReportsHotStatements(t *testing.T) {
	var mu sync.Mutex
	var hot []string
	tr := New(Params{K: 3, WindowSize: 2, TickSize: 10, MaxSharePercent: 30}, func(sql string, count uint32) {
		mu.Lock()
		hot = append(hot, sql)
		mu.Unlock()
	})

	// One tick: 8 of 10 uses go to the same statement.
	for i := 0; i < 8; i++ {
		tr.Hit("SELECT hot")
	}
	tr.Miss("SELECT a")
	tr.Miss("SELECT b")

	if tr.Ticks() != 1 {
		t.Fatalf("Ticks() = %d, want 1", tr.Ticks())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(hot) != 1 || !strings.Contains(hot[0], "hot") {
		t.Errorf("hot statements = %v, want [SELECT hot]", hot)
	}
}
