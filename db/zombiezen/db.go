// Package zombiezen implements db.Db with zombiezen.com/go/sqlite connections
// held in a reader/writer session pool.
package zombiezen

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caasmo/litepool/db"
	"github.com/caasmo/litepool/pool"
	"github.com/caasmo/litepool/session"
	"github.com/caasmo/litepool/stmtcache"
	"zombiezen.com/go/sqlite"
)

type (
	Session = session.Session[*sqlite.Conn, *sqlite.Stmt]
	Pool    = pool.DoublePool[*Session, *session.Info]
)

// Options configures Open.
type Options struct {
	// Path is a file name or a file: URI. In-memory databases are not
	// shared between connections and only make sense with pool.Single().
	Path        string
	BusyTimeout time.Duration
	Topology    pool.Topology
	// Statements is the per-session statement cache capacity.
	Statements int
	Cache      stmtcache.Options
	Logger     *slog.Logger
}

type Db struct {
	pool   *Pool
	logger *slog.Logger
}

var _ db.Db = (*Db)(nil)

// Open builds the pool and opens the writer connection so that the database
// file exists in WAL mode before any reader is opened.
func Open(ctx context.Context, opts Options) (*Db, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := session.NewPool[*sqlite.Conn, *sqlite.Stmt](&Driver{Path: opts.Path, BusyTimeout: opts.BusyTimeout}, session.PoolOptions{
		Topology:   opts.Topology,
		Statements: opts.Statements,
		Cache:      opts.Cache,
		Logger:     logger,
	})

	w, err := p.BorrowWriter(ctx)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("zombiezen: open %s: %w", opts.Path, err)
	}
	w.Close()

	logger.Debug("database opened", "path", opts.Path, "topology", opts.Topology.String(), "driver", "zombiezen")
	return &Db{pool: p, logger: logger}, nil
}

// Pool returns the underlying session pool.
func (d *Db) Pool() *Pool { return d.pool }

func (d *Db) Exec(ctx context.Context, sql string, args ...any) (int, error) {
	w, err := d.pool.BorrowWriter(ctx)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	s := w.Value()
	if err := Execute(ctx, s, sql, &ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return s.Conn().Changes(), nil
}

func (d *Db) Query(ctx context.Context, sql string, args ...any) (*db.Rows, error) {
	r, err := d.pool.BorrowReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h, err := prepare(r.Value(), sql)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	rows := &db.Rows{Columns: columnNames(h.Stmt)}
	err = step(ctx, r.Value().Conn(), h.Stmt, &ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows.Values = append(rows.Values, rowValues(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping checks that table can be read.
func (d *Db) Ping(ctx context.Context, table string) error {
	r, err := d.pool.BorrowReader(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	return Execute(ctx, r.Value(), fmt.Sprintf("SELECT 1 FROM %s LIMIT 1;", table), nil)
}

func (d *Db) Migrate(ctx context.Context, fsys fs.FS) error {
	w, err := d.pool.BorrowWriter(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	return ApplyMigrations(w.Value().Conn(), fsys)
}

func (d *Db) Stats() pool.DoublePoolStats {
	return d.pool.Stats()
}

// Close closes every pooled connection. Handles still borrowed are closed
// when returned.
func (d *Db) Close() error {
	d.pool.Close()
	return nil
}

func columnNames(stmt *sqlite.Stmt) []string {
	names := make([]string, stmt.ColumnCount())
	for i := range names {
		names[i] = stmt.ColumnName(i)
	}
	return names
}

func rowValues(stmt *sqlite.Stmt) []any {
	values := make([]any, stmt.ColumnCount())
	for i := range values {
		switch stmt.ColumnType(i) {
		case sqlite.TypeInteger:
			values[i] = stmt.ColumnInt64(i)
		case sqlite.TypeFloat:
			values[i] = stmt.ColumnFloat(i)
		case sqlite.TypeText:
			values[i] = stmt.ColumnText(i)
		case sqlite.TypeBlob:
			buf := make([]byte, stmt.ColumnLen(i))
			stmt.ColumnBytes(i, buf)
			values[i] = buf
		default:
			values[i] = nil
		}
	}
	return values
}
