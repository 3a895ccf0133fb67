// Package crawshaw implements db.Db with crawshaw.io/sqlite connections held
// in a reader/writer session pool.
package crawshaw

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/caasmo/litepool/db"
	"github.com/caasmo/litepool/migrations"
	"github.com/caasmo/litepool/pool"
	"github.com/caasmo/litepool/session"
	"github.com/caasmo/litepool/stmtcache"
)

type (
	Session = session.Session[*sqlite.Conn, *sqlite.Stmt]
	Pool    = pool.DoublePool[*Session, *session.Info]
)

type Options struct {
	Path        string
	BusyTimeout time.Duration
	Topology    pool.Topology
	Statements  int
	Cache       stmtcache.Options
	Logger      *slog.Logger
}

type Db struct {
	pool *Pool
}

var _ db.Db = (*Db)(nil)

// Open builds the pool and opens the writer connection first.
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
		return nil, fmt.Errorf("crawshaw: open %s: %w", opts.Path, err)
	}
	w.Close()

	logger.Debug("database opened", "path", opts.Path, "topology", opts.Topology.String(), "driver", "crawshaw")
	return &Db{pool: p}, nil
}

func (d *Db) Pool() *Pool { return d.pool }

func (d *Db) Exec(ctx context.Context, sql string, args ...any) (int, error) {
	w, err := d.pool.BorrowWriter(ctx)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	s := w.Value()
	if err := execute(ctx, s, sql, nil, args...); err != nil {
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

	rows := &db.Rows{}
	if err := execute(ctx, r.Value(), sql, rows, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *Db) Ping(ctx context.Context, table string) error {
	r, err := d.pool.BorrowReader(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	return execute(ctx, r.Value(), fmt.Sprintf("SELECT 1 FROM %s LIMIT 1;", table), nil)
}

// Migrate applies the .sql files of fsys in lexical path order.
func (d *Db) Migrate(ctx context.Context, fsys fs.FS) error {
	w, err := d.pool.BorrowWriter(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	files, err := migrations.Files(fsys, ".")
	if err != nil {
		return fmt.Errorf("could not list migration files: %w", err)
	}
	for _, path := range files {
		sqlBytes, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", path, err)
		}
		if err := sqlitex.ExecScript(w.Value().Conn(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to execute migration file %s: %w", path, err)
		}
	}
	return nil
}

func (d *Db) Stats() pool.DoublePoolStats {
	return d.pool.Stats()
}

func (d *Db) Close() error {
	d.pool.Close()
	return nil
}

// execute runs one cached statement on s and resets it afterwards. A non-nil
// rows collects the column names, even of an empty result, and every row.
func execute(ctx context.Context, s *Session, sql string, rows *db.Rows, args ...any) error {
	h, err := s.CreateStatement(sql)
	if err != nil {
		return fmt.Errorf("crawshaw: prepare %q: %w", sql, err)
	}
	defer h.Close()

	stmt := h.Stmt
	defer stmt.Reset()
	if err := db.BindArgs(stmt, args...); err != nil {
		return err
	}
	if rows != nil {
		rows.Columns = columnNames(stmt)
	}

	conn := s.Conn()
	old := conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(old)

	for {
		row, err := stmt.Step()
		if err != nil {
			return err
		}
		if !row {
			return nil
		}
		if rows != nil {
			rows.Values = append(rows.Values, rowValues(stmt))
		}
	}
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
		case sqlite.SQLITE_INTEGER:
			values[i] = stmt.ColumnInt64(i)
		case sqlite.SQLITE_FLOAT:
			values[i] = stmt.ColumnFloat(i)
		case sqlite.SQLITE_TEXT:
			values[i] = stmt.ColumnText(i)
		case sqlite.SQLITE_BLOB:
			buf := make([]byte, stmt.ColumnLen(i))
			stmt.ColumnBytes(i, buf)
			values[i] = buf
		default:
			values[i] = nil
		}
	}
	return values
}
