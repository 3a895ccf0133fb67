package zombiezen

import (
	"context"
	"fmt"

	"github.com/caasmo/litepool/db"
)

const insertLogSQL = "INSERT INTO logs (level, message, data, created) VALUES (?, ?, ?, ?)"

// InsertBatch writes a batch of log entries through the writer session. The
// insert statement stays in the session's cache across batches.
func (d *Db) InsertBatch(batch []db.Log) error {
	if len(batch) == 0 {
		return nil
	}

	w, err := d.pool.BorrowWriter(context.Background())
	if err != nil {
		return err
	}
	defer w.Close()

	return InsertLogs(w.Value(), batch)
}

// InsertLogs writes batch in one immediate transaction that is rolled back
// on any error.
func InsertLogs(s *Session, batch []db.Log) (err error) {
	ctx := context.Background()

	if err = Execute(ctx, s, "BEGIN IMMEDIATE;", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = Execute(ctx, s, "ROLLBACK;", nil)
		}
	}()

	for _, entry := range batch {
		err = Execute(ctx, s, insertLogSQL, &ExecOptions{
			Args: []any{entry.Level, entry.Message, entry.JsonData, entry.Created},
		})
		if err != nil {
			return fmt.Errorf("failed to execute statement for record (msg: %q): %w", entry.Message, err)
		}
	}

	if err = Execute(ctx, s, "COMMIT;", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
