package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/task"
)

const (
	dateFormat = "2006-01-02"
)

// Apply reconciles one pass's events into the mirror. Created and Updated
// events upsert rows; Deleted events remove them; Conflict and
// RateLimitedBatch events carry no row changes.
func (db *DB) Apply(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		switch ev := ev.(type) {
		case engine.Created:
			if err := upsertTx(ctx, tx, ev.Record); err != nil {
				return err
			}
		case engine.Updated:
			if err := upsertTx(ctx, tx, ev.Record); err != nil {
				return err
			}
		case engine.Deleted:
			if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE path = ?", ev.Path); err != nil {
				return fmt.Errorf("deleting %s from index: %w", ev.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index transaction: %w", err)
	}
	return nil
}

// Rebuild replaces the entire mirror with the given records. Used after
// the mirror is deleted or suspected stale beyond repair.
func (db *DB) Rebuild(ctx context.Context, records []*task.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	for _, rec := range records {
		if err := upsertTx(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the row for one record.
func (db *DB) Upsert(ctx context.Context, rec *task.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsertTx(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertTx(ctx context.Context, tx *sql.Tx, rec *task.Record) error {
	fm := rec.Doc.Frontmatter

	priority := fm.Priority
	if priority == "" {
		priority = task.PriorityNone
	}

	tagsJSON := "[]"
	if len(fm.Tags) > 0 {
		data, err := json.Marshal(fm.Tags)
		if err != nil {
			return fmt.Errorf("marshaling tags for %s: %w", rec.Path, err)
		}
		tagsJSON = string(data)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tasks (
			path, filename, title, status, priority, flagged,
			area, project, tags, due, due_time, defer_until, scheduled,
			recurrence, estimated_minutes, source,
			created, modified, completed, body, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Path, rec.Filename, fm.Title, string(fm.Status), string(priority), boolInt(fm.Flagged),
		nullString(fm.Area), nullString(fm.Project), tagsJSON,
		nullDate(fm.Due), nullString(fm.DueTime), nullDate(fm.Defer), nullDate(fm.Scheduled),
		nullString(fm.Recurrence), fm.EstimatedMinutes, nullString(fm.Source),
		nullTimestamp(fm.Created), nullTimestamp(fm.Modified), nullTimestamp(fm.Completed),
		rec.Doc.Body, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting %s into index: %w", rec.Path, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateFormat)
}

func nullTimestamp(t time.Time) any {
	if t.IsZero() || t.Equal(task.CreatedSentinel) {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
