package zombiezen

import (
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/litepool/session"
	"github.com/caasmo/litepool/stmtcache"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Driver opens zombiezen connections for a session pool. The writer is opened
// read-write in WAL mode and creates the database file; readers are opened
// read-only.
type Driver struct {
	Path        string
	BusyTimeout time.Duration
}

var _ session.Driver[*sqlite.Conn, *sqlite.Stmt] = (*Driver)(nil)

const (
	writerFlags = sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL | sqlite.OpenURI | sqlite.OpenNoMutex
	readerFlags = sqlite.OpenReadOnly | sqlite.OpenURI | sqlite.OpenNoMutex
)

func (d *Driver) uri() string {
	if strings.HasPrefix(d.Path, "file:") {
		return d.Path
	}
	return "file:" + d.Path
}

func (d *Driver) Open(role session.Role, info *session.Info) (*sqlite.Conn, error) {
	flags := readerFlags
	if role == session.RoleWriter {
		flags = writerFlags
	}

	conn, err := sqlite.OpenConn(d.uri(), flags)
	if err != nil {
		return nil, fmt.Errorf("zombiezen: open %s connection %d: %w", role, info.Ordinal, err)
	}

	pragma := fmt.Sprintf("PRAGMA busy_timeout = %d;", d.BusyTimeout.Milliseconds())
	if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("zombiezen: set busy timeout: %w", err)
	}
	return conn, nil
}

func (d *Driver) Close(conn *sqlite.Conn) error {
	return conn.Close()
}

// Compile prepares a single statement. SQL holding more than one statement
// is rejected; a tail of comments or whitespace is not.
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
		return nil, fmt.Errorf("zombiezen: %d trailing bytes after statement", trailing)
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
