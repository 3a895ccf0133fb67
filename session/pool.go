package session

import (
	"log/slog"
	"time"

	"github.com/caasmo/litepool/pool"
	"github.com/caasmo/litepool/stmtcache"
)

// PoolOptions configures NewPool.
type PoolOptions struct {
	Topology pool.Topology
	// Statements is the per-session statement cache capacity; 0 disables it.
	Statements int
	Cache      stmtcache.Options
	Logger     *slog.Logger
}

// factory opens sessions of one role for a pool.
type factory[C, S any] struct {
	driver     Driver[C, S]
	role       Role
	statements int
	cache      stmtcache.Options
}

func (f *factory[C, S]) NewContext() (*Info, error) {
	return &Info{Role: f.role, Opened: time.Now()}, nil
}

func (f *factory[C, S]) NewResource(n int, info *Info) (*Session[C, S], error) {
	info.Ordinal = n
	conn, err := f.driver.Open(f.role, info)
	if err != nil {
		return nil, err
	}
	return New(conn, info, f.driver, f.statements, f.cache), nil
}

func (f *factory[C, S]) CloseResource(s *Session[C, S]) error {
	return s.Close()
}

func (f *factory[C, S]) CloseContext(*Info) error {
	return nil
}

// NewPool builds a reader/writer pool of statement-caching sessions on top of
// driver.
func NewPool[C, S any](driver Driver[C, S], opts PoolOptions) *pool.DoublePool[*Session[C, S], *Info] {
	cacheOpts := opts.Cache
	if cacheOpts.Logger == nil {
		cacheOpts.Logger = opts.Logger
	}
	writer := &factory[C, S]{driver: driver, role: RoleWriter, statements: opts.Statements, cache: cacheOpts}
	reader := &factory[C, S]{driver: driver, role: RoleReader, statements: opts.Statements, cache: cacheOpts}

	var poolOpts []pool.Option
	if opts.Logger != nil {
		poolOpts = append(poolOpts, pool.WithLogger(opts.Logger))
	}
	return pool.NewDoublePool[*Session[C, S], *Info](opts.Topology, writer, reader, poolOpts...)
}
