// Package index maintains a denormalized SQLite mirror of the canonical
// task files, reconciled from engine output. The mirror answers queries
// fast but is never authoritative: it can be deleted and rebuilt from the
// files at any time, and every row traces back to a record the engine fed
// in.
//
// The database runs embedded with WAL mode for concurrent readers.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection holding the task mirror.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the index database at path. The caller
// must Close when done.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging index: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the mirror schema. Idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		path TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'none',
		flagged INTEGER NOT NULL DEFAULT 0,
		area TEXT,
		project TEXT,
		tags TEXT,  -- JSON array
		due TEXT,   -- YYYY-MM-DD
		due_time TEXT,
		defer_until TEXT,
		scheduled TEXT,
		recurrence TEXT,
		estimated_minutes INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		created TEXT,
		modified TEXT,
		completed TEXT,
		body TEXT,

		indexed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due);
	CREATE INDEX IF NOT EXISTS idx_tasks_area ON tasks(area);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project);
	CREATE INDEX IF NOT EXISTS idx_tasks_source ON tasks(source);

	-- Composite index for the common "open work by due date" query
	CREATE INDEX IF NOT EXISTS idx_tasks_open_due ON tasks(status, due);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initializing index schema: %w", err)
	}
	return nil
}
