// package repositories provides persistence layer implementations for sync history and the event cache.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for rows (e.g. sync run #42) independent of UUIDs and timestamps.
func NextSequence(ctx context.Context, db *sqlx.DB, table string) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.GetContext(ctx, &sequence, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
