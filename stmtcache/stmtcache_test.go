package stmtcache

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStmt struct {
	sql       string
	bound     []any
	resets    int
	finalized int
}

type fakeFactory struct {
	compiled   []*fakeStmt
	compileErr error
	resetErr   error
}

func (f *fakeFactory) Compile(sql string) (*fakeStmt, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	s := &fakeStmt{sql: sql}
	f.compiled = append(f.compiled, s)
	return s, nil
}

func (f *fakeFactory) Reset(s *fakeStmt) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	s.resets++
	s.bound = nil
	return nil
}

func (f *fakeFactory) Finalize(s *fakeStmt) error {
	s.finalized++
	return nil
}

type countingObserver struct {
	mu                    sync.Mutex
	hits, misses, evicted []string
}

func (o *countingObserver) Hit(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits = append(o.hits, key)
}

func (o *countingObserver) Miss(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses = append(o.misses, key)
}

func (o *countingObserver) Evicted(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evicted = append(o.evicted, key)
}

func TestGetOrCreate_ReusesAndResets(t *testing.T) {
	f := &fakeFactory{}
	obs := &countingObserver{}
	c := New[*fakeStmt](4, f, Options{Observer: obs, Logger: newTestLogger()})

	h1, err := c.GetOrCreate("SELECT 1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	h1.Stmt.bound = []any{42}
	if err := h1.Close(); err != nil {
		t.Fatalf("closing cached handle: %v", err)
	}

	h2, err := c.GetOrCreate("SELECT 1")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if h2.Stmt != h1.Stmt {
		t.Fatal("second GetOrCreate compiled a new statement")
	}
	if h2.Stmt.resets != 1 || h2.Stmt.bound != nil {
		t.Errorf("reused statement not reset: resets %d bound %v", h2.Stmt.resets, h2.Stmt.bound)
	}
	if !h2.Cached() {
		t.Error("cached statement handle reports uncached")
	}
	if h2.Stmt.finalized != 0 {
		t.Error("closing a cached handle finalized the statement")
	}
	if len(f.compiled) != 1 {
		t.Errorf("compiled %d statements, want 1", len(f.compiled))
	}
	if len(obs.hits) != 1 || len(obs.misses) != 1 {
		t.Errorf("observer saw %d hits and %d misses, want 1 and 1", len(obs.hits), len(obs.misses))
	}
}

func TestGetOrCreate_EvictsAndFinalizes(t *testing.T) {
	f := &fakeFactory{}
	obs := &countingObserver{}
	c := New[*fakeStmt](2, f, Options{Observer: obs, Logger: newTestLogger()})

	for _, sql := range []string{"SELECT 1", "SELECT 2", "SELECT 3"} {
		if _, err := c.GetOrCreate(sql); err != nil {
			t.Fatalf("GetOrCreate(%q): %v", sql, err)
		}
	}

	if c.Len() != 2 {
		t.Errorf("cache holds %d statements, want 2", c.Len())
	}
	if got := f.compiled[0].finalized; got != 1 {
		t.Errorf("evicted statement finalized %d times, want 1", got)
	}
	if len(obs.evicted) != 1 || obs.evicted[0] != "SELECT 1" {
		t.Errorf("observer evictions = %v, want [SELECT 1]", obs.evicted)
	}

	c.Clear()
	for _, s := range f.compiled {
		if s.finalized != 1 {
			t.Errorf("statement %q finalized %d times after Clear, want 1", s.sql, s.finalized)
		}
	}
}

func TestGetOrCreate_FIFOOrder(t *testing.T) {
	f := &fakeFactory{}
	c := New[*fakeStmt](2, f, Options{Order: OrderFIFO, Logger: newTestLogger()})

	c.GetOrCreate("SELECT 1")
	c.GetOrCreate("SELECT 2")
	c.GetOrCreate("SELECT 1") // a hit does not protect it under FIFO
	c.GetOrCreate("SELECT 3")

	if got := c.Keys(); len(got) != 2 || got[0] != "SELECT 2" || got[1] != "SELECT 3" {
		t.Errorf("Keys() = %v, want [SELECT 2 SELECT 3]", got)
	}
}

func TestGetOrCreate_ZeroCapacity(t *testing.T) {
	f := &fakeFactory{}
	obs := &countingObserver{}
	c := New[*fakeStmt](0, f, Options{Observer: obs, Logger: newTestLogger()})

	h1, _ := c.GetOrCreate("SELECT 1")
	h2, _ := c.GetOrCreate("SELECT 1")
	if h1.Stmt == h2.Stmt {
		t.Fatal("uncached cache returned the same statement twice")
	}
	if h1.Cached() {
		t.Error("handle from a disabled cache reports cached")
	}
	if h1.Stmt.finalized != 0 {
		t.Error("statement finalized before the caller closed it")
	}

	h1.Close()
	h1.Close()
	if h1.Stmt.finalized != 1 {
		t.Errorf("statement finalized %d times after Close, want 1", h1.Stmt.finalized)
	}
	h2.Close()

	if len(obs.evicted) != 0 {
		t.Errorf("disabled cache reported evictions: %v", obs.evicted)
	}
	if c.Len() != 0 || c.Stats().Puts != 0 {
		t.Errorf("disabled cache holds state: len %d stats %+v", c.Len(), c.Stats())
	}
}

func TestGetOrCreate_CompileErrorInsertsNothing(t *testing.T) {
	wantErr := errors.New("syntax error")
	f := &fakeFactory{compileErr: wantErr}
	c := New[*fakeStmt](2, f, Options{Logger: newTestLogger()})

	if _, err := c.GetOrCreate("SELEC 1"); err != wantErr {
		t.Fatalf("GetOrCreate returned %v, want the compile error unchanged", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed compile left %d statements in the cache", c.Len())
	}
}

func TestGetOrCreate_ResetFailureRecompiles(t *testing.T) {
	f := &fakeFactory{}
	c := New[*fakeStmt](2, f, Options{Logger: newTestLogger()})

	first, _ := c.GetOrCreate("SELECT 1")
	f.resetErr = errors.New("constraint failed")
	second, err := c.GetOrCreate("SELECT 1")
	if err != nil {
		t.Fatalf("GetOrCreate after reset failure: %v", err)
	}
	if second.Stmt == first.Stmt {
		t.Error("statement that failed to reset was reused")
	}
	if first.Stmt.finalized != 1 {
		t.Errorf("dropped statement finalized %d times, want 1", first.Stmt.finalized)
	}
}

func TestGetOrCreate_NormalizesKeys(t *testing.T) {
	f := &fakeFactory{}
	c := New[*fakeStmt](2, f, Options{Normalizer: NewNormalizer(nil), Logger: newTestLogger()})

	a, _ := c.GetOrCreate("SELECT  *\n  FROM t")
	b, _ := c.GetOrCreate(" SELECT * FROM t ")
	if a.Stmt != b.Stmt {
		t.Error("statements differing only in whitespace were compiled twice")
	}
	if a.Stmt.sql != "SELECT  *\n  FROM t" {
		t.Errorf("compiled %q, want the caller's text", a.Stmt.sql)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "SELECT * FROM t" {
		t.Errorf("Keys() = %q, want the normalized text", keys)
	}
}

func TestGetOrCreate_CompilesCallerText(t *testing.T) {
	f := &fakeFactory{}
	c := New[*fakeStmt](2, f, Options{Normalizer: NewNormalizer(nil), Logger: newTestLogger()})

	sql := "UPDATE t SET a = 1 -- bump one row\nWHERE id = 2"
	h, err := c.GetOrCreate(sql)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if h.Stmt.sql != sql {
		t.Errorf("compiled %q, want %q", h.Stmt.sql, sql)
	}

	uncached := New[*fakeStmt](0, f, Options{Normalizer: NewNormalizer(nil), Logger: newTestLogger()})
	h, err = uncached.GetOrCreate(sql)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	defer h.Close()
	if h.Stmt.sql != sql {
		t.Errorf("uncached compiled %q, want %q", h.Stmt.sql, sql)
	}
}
