package crawshaw

import (
	"fmt"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/caasmo/litepool/session"
	"github.com/caasmo/litepool/stmtcache"
)

// Driver opens crawshaw connections for a session pool.
type Driver struct {
	Path        string
	BusyTimeout time.Duration
}

var _ session.Driver[*sqlite.Conn, *sqlite.Stmt] = (*Driver)(nil)

const (
	writerFlags = sqlite.SQLITE_OPEN_READWRITE | sqlite.SQLITE_OPEN_CREATE | sqlite.SQLITE_OPEN_WAL |
		sqlite.SQLITE_OPEN_URI | sqlite.SQLITE_OPEN_NOMUTEX
	readerFlags = sqlite.SQLITE_OPEN_READONLY | sqlite.SQLITE_OPEN_URI | sqlite.SQLITE_OPEN_NOMUTEX
)

func (d *Driver) Open(role session.Role, info *session.Info) (*sqlite.Conn, error) {
	path := d.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d;", d.BusyTimeout.Milliseconds())}
	flags := readerFlags
	if role == session.RoleWriter {
		flags = writerFlags
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;")
	}

	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, fmt.Errorf("crawshaw: open %s connection %d: %w", role, info.Ordinal, err)
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecTransient(conn, p, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("crawshaw: %s: %w", p, err)
		}
	}
	return conn, nil
}

func (d *Driver) Close(conn *sqlite.Conn) error {
	return conn.Close()
}

func (d *Driver) Compile(conn *sqlite.Conn, sql string) (*sqlite.Stmt, error) {
	stmt, trailing, err := conn.PrepareTransient(sql)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, session.ErrNoStatement
	}
	if trailing > 0 && !stmtcache.Blank(sql[len(sql)-trailing:]) {
		stmt.Finalize()
		return nil, fmt.Errorf("crawshaw: %d trailing bytes after statement", trailing)
	}
	return stmt, nil
}

func (d *Driver) Reset(stmt *sqlite.Stmt) error {
	if err := stmt.Reset(); err != nil {
		return err
	}
	return stmt.ClearBindings()
}

func (d *Driver) Finalize(stmt *sqlite.Stmt) error {
	return stmt.Finalize()
}
