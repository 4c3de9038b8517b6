package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/caduceuspress/pulse/pkg/event"
)

// SQLiteBackup is a file-backed BackupStore. The file survives process
// restarts, so records buffered at crash time can be restored and
// re-delivered on the next startup.
type SQLiteBackup struct {
	db    *sql.DB
	limit int
}

// NewSQLiteBackup opens (or creates) the backup database at path and prepares
// the schema. A limit <= 0 falls back to DefaultBackupLimit.
func NewSQLiteBackup(path string, limit int) (*SQLiteBackup, error) {
	if limit <= 0 {
		limit = DefaultBackupLimit
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent enqueues.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS backup_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			enqueued_at TIMESTAMP NOT NULL,
			record TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare backup schema: %w", err)
	}

	return &SQLiteBackup{db: db, limit: limit}, nil
}

// Append mirrors a record and prunes the oldest rows beyond the limit.
func (b *SQLiteBackup) Append(ctx context.Context, item *event.QueueItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode backup record: %w", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin backup transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO backup_queue (event_id, enqueued_at, record) VALUES (?, ?, ?)`,
		item.Event.ID, item.EnqueuedAt.UTC(), string(raw),
	); err != nil {
		return fmt.Errorf("failed to append backup record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM backup_queue WHERE id NOT IN (
			SELECT id FROM backup_queue ORDER BY id DESC LIMIT ?
		)`, b.limit,
	); err != nil {
		return fmt.Errorf("failed to prune backup records: %w", err)
	}

	return tx.Commit()
}

// Remove drops the mirrored record for a delivered event.
func (b *SQLiteBackup) Remove(ctx context.Context, eventID string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM backup_queue WHERE event_id = ?`, eventID,
	); err != nil {
		return fmt.Errorf("failed to remove backup record: %w", err)
	}
	return nil
}

// Clear drops all mirrored records.
func (b *SQLiteBackup) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM backup_queue`); err != nil {
		return fmt.Errorf("failed to clear backup records: %w", err)
	}
	return nil
}

// Load returns surviving records in enqueue order. Rows that fail to decode
// are skipped rather than blocking a restore.
func (b *SQLiteBackup) Load(ctx context.Context) ([]*event.QueueItem, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT record FROM backup_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup records: %w", err)
	}
	defer rows.Close()

	var items []*event.QueueItem
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}
		var item event.QueueItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backup records: %w", err)
	}
	return items, nil
}

// Count reports the number of mirrored records.
func (b *SQLiteBackup) Count(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count backup records: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (b *SQLiteBackup) Close() error {
	return b.db.Close()
}
