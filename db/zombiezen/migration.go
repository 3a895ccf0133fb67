package zombiezen

import (
	"fmt"
	"io/fs"

	"github.com/caasmo/litepool/migrations"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ApplyMigrations executes all .sql files from the given filesystem against
// the database connection, in lexical path order.
func ApplyMigrations(conn *sqlite.Conn, fsys fs.FS) error {
	files, err := migrations.Files(fsys, ".")
	if err != nil {
		return fmt.Errorf("could not list migration files: %w", err)
	}

	for _, path := range files {
		sqlBytes, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", path, err)
		}
		if err := sqlitex.ExecuteScript(conn, string(sqlBytes), nil); err != nil {
			return fmt.Errorf("failed to execute migration file %s: %w", path, err)
		}
	}
	return nil
}
