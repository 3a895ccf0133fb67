// Package session pairs a native database connection with its statement
// cache and adapts a driver to the pool's resource factory.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/caasmo/litepool/stmtcache"
)

// Role tells a driver how to open a connection.
type Role uint8

const (
	RoleWriter Role = iota
	RoleReader
)

func (r Role) String() string {
	if r == RoleReader {
		return "reader"
	}
	return "writer"
}

// Info is the bookkeeping created alongside each pooled connection.
type Info struct {
	Ordinal int
	Role    Role
	Opened  time.Time
}

// Driver opens native connections and manages their statements.
type Driver[C, S any] interface {
	Open(role Role, info *Info) (C, error)
	Close(conn C) error
	Compile(conn C, sql string) (S, error)
	Reset(stmt S) error
	Finalize(stmt S) error
}

// Session is one connection plus its statement cache. It is used by a single
// goroutine at a time: whoever holds the pool handle it came from.
type Session[C, S any] struct {
	conn   C
	info   *Info
	driver Driver[C, S]
	stmts  *stmtcache.Cache[S]
}

// New wraps conn with a cache of capacity statements.
func New[C, S any](conn C, info *Info, driver Driver[C, S], capacity int, opts stmtcache.Options) *Session[C, S] {
	s := &Session[C, S]{conn: conn, info: info, driver: driver}
	s.stmts = stmtcache.New[S](capacity, statementFactory[C, S]{s}, opts)
	return s
}

// Conn returns the native connection.
func (s *Session[C, S]) Conn() C { return s.conn }

// Info returns the bookkeeping of the connection.
func (s *Session[C, S]) Info() *Info { return s.info }

// Statements returns the session's statement cache.
func (s *Session[C, S]) Statements() *stmtcache.Cache[S] { return s.stmts }

// CreateStatement returns a ready-to-bind statement for sql, reusing a cached
// one when possible. The handle must be closed after use.
func (s *Session[C, S]) CreateStatement(sql string) (*stmtcache.Handle[S], error) {
	return s.stmts.GetOrCreate(sql)
}

// Close finalizes the cached statements and closes the connection.
func (s *Session[C, S]) Close() error {
	s.stmts.Clear()
	if err := s.driver.Close(s.conn); err != nil {
		return fmt.Errorf("session: close %s connection %d: %w", s.info.Role, s.info.Ordinal, err)
	}
	return nil
}

// statementFactory binds the driver's statement operations to one connection.
type statementFactory[C, S any] struct {
	s *Session[C, S]
}

func (f statementFactory[C, S]) Compile(sql string) (S, error) {
	return f.s.driver.Compile(f.s.conn, sql)
}

func (f statementFactory[C, S]) Reset(stmt S) error {
	return f.s.driver.Reset(stmt)
}

func (f statementFactory[C, S]) Finalize(stmt S) error {
	return f.s.driver.Finalize(stmt)
}

// ErrNoStatement is returned by drivers when the SQL text holds no statement.
var ErrNoStatement = errors.New("session: no statement in SQL text")
