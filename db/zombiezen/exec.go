package zombiezen

import (
	"context"
	"fmt"

	"github.com/caasmo/litepool/db"
	"github.com/caasmo/litepool/stmtcache"
	"zombiezen.com/go/sqlite"
)

// ExecOptions is the optional part of Execute.
type ExecOptions struct {
	Args []any
	// ResultFunc is called for each row. Returning an error stops the
	// execution.
	ResultFunc func(stmt *sqlite.Stmt) error
}

// Execute runs one statement on s through its statement cache. The statement
// is reset before Execute returns so that it holds no transaction open.
func Execute(ctx context.Context, s *Session, sql string, opts *ExecOptions) error {
	h, err := prepare(s, sql)
	if err != nil {
		return err
	}
	defer h.Close()

	return step(ctx, s.Conn(), h.Stmt, opts)
}

func prepare(s *Session, sql string) (*stmtcache.Handle[*sqlite.Stmt], error) {
	h, err := s.CreateStatement(sql)
	if err != nil {
		return nil, fmt.Errorf("zombiezen: prepare %q: %w", sql, err)
	}
	return h, nil
}

func step(ctx context.Context, conn *sqlite.Conn, stmt *sqlite.Stmt, opts *ExecOptions) error {
	defer stmt.Reset()
	if opts == nil {
		opts = &ExecOptions{}
	}
	if err := db.BindArgs(stmt, opts.Args...); err != nil {
		return err
	}

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
		if opts.ResultFunc != nil {
			if err := opts.ResultFunc(stmt); err != nil {
				return err
			}
		}
	}
}
