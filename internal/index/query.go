package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasknest/tasknest/internal/task"
)

// Row is one mirrored task as the index sees it. Dates and timestamps
// come back as the stored strings; zero values mean the field was unset.
type Row struct {
	Path             string
	Filename         string
	Title            string
	Status           task.Status
	Priority         task.Priority
	Flagged          bool
	Area             string
	Project          string
	Tags             []string
	Due              string
	DueTime          string
	Defer            string
	Scheduled        string
	Recurrence       string
	EstimatedMinutes int
	Source           string
	IndexedAt        time.Time
}

const rowColumns = `path, filename, title, status, priority, flagged,
	area, project, tags, due, due_time, defer_until, scheduled,
	recurrence, estimated_minutes, source, indexed_at`

// Get returns the row for one path, or sql.ErrNoRows.
func (db *DB) Get(ctx context.Context, path string) (*Row, error) {
	rows, err := db.queryRows(ctx,
		"SELECT "+rowColumns+" FROM tasks WHERE path = ?", path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return &rows[0], nil
}

// ByStatus returns tasks with the given status, ordered by due date with
// undated tasks last, then title.
func (db *DB) ByStatus(ctx context.Context, status task.Status) ([]Row, error) {
	return db.queryRows(ctx,
		"SELECT "+rowColumns+` FROM tasks WHERE status = ?
		 ORDER BY due IS NULL, due, title`, string(status))
}

// DueBefore returns non-terminal tasks due strictly before the given day.
func (db *DB) DueBefore(ctx context.Context, day time.Time) ([]Row, error) {
	return db.queryRows(ctx,
		"SELECT "+rowColumns+` FROM tasks
		 WHERE due IS NOT NULL AND due < ?
		   AND status NOT IN ('done', 'cancelled')
		 ORDER BY due, title`, day.Format(dateFormat))
}

// ByArea returns tasks in an area.
func (db *DB) ByArea(ctx context.Context, area string) ([]Row, error) {
	return db.queryRows(ctx,
		"SELECT "+rowColumns+" FROM tasks WHERE area = ? ORDER BY title", area)
}

// ByProject returns tasks in a project.
func (db *DB) ByProject(ctx context.Context, project string) ([]Row, error) {
	return db.queryRows(ctx,
		"SELECT "+rowColumns+" FROM tasks WHERE project = ? ORDER BY title", project)
}

// ByTag returns tasks carrying the given tag.
func (db *DB) ByTag(ctx context.Context, tag string) ([]Row, error) {
	// Tags are a JSON array; match the quoted element.
	pattern := `%"` + tag + `"%`
	rows, err := db.queryRows(ctx,
		"SELECT "+rowColumns+" FROM tasks WHERE tags LIKE ? ORDER BY title", pattern)
	if err != nil {
		return nil, err
	}
	// The LIKE is a prefilter; confirm against the decoded list so
	// `home` does not match `home-office`.
	out := rows[:0]
	for _, r := range rows {
		for _, have := range r.Tags {
			if have == tag {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// Search returns tasks whose title or body contains the query text.
func (db *DB) Search(ctx context.Context, text string) ([]Row, error) {
	pattern := "%" + text + "%"
	return db.queryRows(ctx,
		"SELECT "+rowColumns+` FROM tasks
		 WHERE title LIKE ? OR body LIKE ? ORDER BY title`, pattern, pattern)
}

// Count returns the number of mirrored tasks.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n)
	return n, err
}

// StalePaths returns paths whose rows were last reconciled before the
// freshness TTL expired. Callers rebuild or re-sync those.
func (db *DB) StalePaths(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT path FROM tasks WHERE indexed_at < ? ORDER BY path", cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying stale rows: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (db *DB) queryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var status, priority string
		var flagged int
		var area, project, tags, due, dueTime, deferred, scheduled, recurrence, source sql.NullString
		var indexedAt string

		err := rows.Scan(
			&r.Path, &r.Filename, &r.Title, &status, &priority, &flagged,
			&area, &project, &tags, &due, &dueTime, &deferred, &scheduled,
			&recurrence, &r.EstimatedMinutes, &source, &indexedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}

		r.Status = task.Status(status)
		r.Priority = task.Priority(priority)
		r.Flagged = flagged != 0
		r.Area = area.String
		r.Project = project.String
		r.Due = due.String
		r.DueTime = dueTime.String
		r.Defer = deferred.String
		r.Scheduled = scheduled.String
		r.Recurrence = recurrence.String
		r.Source = source.String
		if tags.Valid && tags.String != "" && tags.String != "[]" {
			if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
				return nil, fmt.Errorf("decoding tags for %s: %w", r.Path, err)
			}
		}
		if t, err := time.Parse(time.RFC3339, indexedAt); err == nil {
			r.IndexedAt = t
		}

		out = append(out, r)
	}
	return out, rows.Err()
}
