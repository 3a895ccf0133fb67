package crawshaw

import (
	"context"
	"fmt"

	"github.com/caasmo/litepool/db"
)

// InsertBatch writes a batch of log entries in one immediate transaction on
// the writer session.
func (d *Db) InsertBatch(batch []db.Log) (err error) {
	if len(batch) == 0 {
		return nil
	}

	ctx := context.Background()
	w, err := d.pool.BorrowWriter(ctx)
	if err != nil {
		return err
	}
	defer w.Close()
	s := w.Value()

	if err = execute(ctx, s, "BEGIN IMMEDIATE;", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = execute(ctx, s, "ROLLBACK;", nil)
		}
	}()

	for _, entry := range batch {
		err = execute(ctx, s, "INSERT INTO logs (level, message, data, created) VALUES (?, ?, ?, ?)", nil,
			entry.Level, entry.Message, entry.JsonData, entry.Created)
		if err != nil {
			return fmt.Errorf("failed to execute statement for record (msg: %q): %w", entry.Message, err)
		}
	}

	if err = execute(ctx, s, "COMMIT;", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
