// Package db defines the driver-neutral surface the command line and the log
// sink use. The zombiezen and crawshaw subpackages implement it on top of a
// reader/writer session pool.
package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caasmo/litepool/pool"
)

// Db is a pooled SQLite database.
type Db interface {
	DbLog

	// Exec runs sql on the writer session and returns the number of rows
	// changed by the last statement.
	Exec(ctx context.Context, sql string, args ...any) (int, error)
	// Query runs sql on a reader session and reads every row.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)
	// Ping checks that table exists and can be read.
	Ping(ctx context.Context, table string) error
	// Migrate applies every .sql file in fsys on the writer session.
	Migrate(ctx context.Context, fsys fs.FS) error
	Stats() pool.DoublePoolStats
	Close() error
}

// ErrUnsupportedArg is returned when a bind argument has no SQLite mapping.
var ErrUnsupportedArg = errors.New("db: unsupported argument type")

// Binder is the parameter binding surface shared by the SQLite drivers.
// Parameters are 1-based.
type Binder interface {
	BindInt64(param int, value int64)
	BindBool(param int, value bool)
	BindBytes(param int, value []byte)
	BindText(param int, value string)
	BindFloat(param int, value float64)
	BindNull(param int)
}

// BindArgs binds args positionally. time.Time values are stored as text in
// TimeFormat.
func BindArgs(b Binder, args ...any) error {
	for i, arg := range args {
		param := i + 1
		switch v := arg.(type) {
		case nil:
			b.BindNull(param)
		case int:
			b.BindInt64(param, int64(v))
		case int32:
			b.BindInt64(param, int64(v))
		case int64:
			b.BindInt64(param, v)
		case uint32:
			b.BindInt64(param, int64(v))
		case bool:
			b.BindBool(param, v)
		case float32:
			b.BindFloat(param, float64(v))
		case float64:
			b.BindFloat(param, v)
		case string:
			b.BindText(param, v)
		case []byte:
			b.BindBytes(param, v)
		case time.Time:
			b.BindText(param, TimeFormat(v))
		default:
			return fmt.Errorf("%w: %T at position %d", ErrUnsupportedArg, arg, param)
		}
	}
	return nil
}

// TimeFormat formats t as RFC3339 in UTC, the layout used for every stored
// timestamp.
func TimeFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TimeParse parses a timestamp written by TimeFormat. An empty string yields
// the zero time.
func TimeParse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
