package index

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/task"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return db
}

func record(path, title string, status task.Status, mutate func(*task.Frontmatter)) *task.Record {
	doc := &task.Document{
		Frontmatter: task.Frontmatter{Title: title, Status: status},
		Body:        "body of " + title + "\n",
	}
	if mutate != nil {
		mutate(&doc.Frontmatter)
	}
	return &task.Record{Path: path, Filename: filepath.Base(path), Doc: doc}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

func TestApply(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := record("/vault/a.md", "Task A", task.StatusTodo, nil)
	b := record("/vault/b.md", "Task B", task.StatusTodo, nil)
	err := db.Apply(ctx, []engine.Event{
		engine.Created{Path: a.Path, Record: a},
		engine.Created{Path: b.Path, Record: b},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n, _ := db.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	a2 := record("/vault/a.md", "Task A revised", task.StatusInProgress, nil)
	err = db.Apply(ctx, []engine.Event{
		engine.Updated{Path: a2.Path, Record: a2},
		engine.Deleted{Path: b.Path},
		engine.Conflict{Path: "/vault/c.md", VersionCount: 2}, // no row change
	})
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}

	row, err := db.Get(ctx, a.Path)
	if err != nil {
		t.Fatal(err)
	}
	if row.Title != "Task A revised" || row.Status != task.StatusInProgress {
		t.Errorf("row = %+v, want revised title and in-progress status", row)
	}
	if _, err := db.Get(ctx, b.Path); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("deleted row still present: %v", err)
	}
}

func TestRebuild(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	stale := record("/vault/old.md", "Old", task.StatusTodo, nil)
	if err := db.Upsert(ctx, stale); err != nil {
		t.Fatal(err)
	}

	fresh := []*task.Record{
		record("/vault/a.md", "Task A", task.StatusTodo, nil),
		record("/vault/b.md", "Task B", task.StatusDone, nil),
	}
	if err := db.Rebuild(ctx, fresh); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if n, _ := db.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2 after rebuild", n)
	}
	if _, err := db.Get(ctx, stale.Path); !errors.Is(err, sql.ErrNoRows) {
		t.Error("pre-rebuild row survived")
	}
}

func TestQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []*task.Record{
		record("/vault/a.md", "Pay rent", task.StatusTodo, func(fm *task.Frontmatter) {
			fm.Due = due
			fm.Area = "home"
			fm.Tags = []string{"money", "home"}
		}),
		record("/vault/b.md", "Ship release", task.StatusInProgress, func(fm *task.Frontmatter) {
			fm.Project = "launch"
			fm.Tags = []string{"work"}
		}),
		record("/vault/c.md", "Old chore", task.StatusDone, func(fm *task.Frontmatter) {
			fm.Due = due.AddDate(0, -1, 0)
		}),
	}
	if err := db.Rebuild(ctx, records); err != nil {
		t.Fatal(err)
	}

	todo, err := db.ByStatus(ctx, task.StatusTodo)
	if err != nil {
		t.Fatal(err)
	}
	if len(todo) != 1 || todo[0].Title != "Pay rent" {
		t.Errorf("ByStatus(todo) = %+v", todo)
	}

	// Done tasks never count as overdue.
	overdue, err := db.DueBefore(ctx, due.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].Path != "/vault/a.md" {
		t.Errorf("DueBefore = %+v, want only a.md", overdue)
	}

	byArea, err := db.ByArea(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if len(byArea) != 1 {
		t.Errorf("ByArea(home) = %d rows, want 1", len(byArea))
	}

	byProject, err := db.ByProject(ctx, "launch")
	if err != nil {
		t.Fatal(err)
	}
	if len(byProject) != 1 || byProject[0].Title != "Ship release" {
		t.Errorf("ByProject(launch) = %+v", byProject)
	}

	byTag, err := db.ByTag(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if len(byTag) != 1 || byTag[0].Path != "/vault/a.md" {
		t.Errorf("ByTag(home) = %+v", byTag)
	}

	found, err := db.Search(ctx, "release")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Title != "Ship release" {
		t.Errorf("Search(release) = %+v", found)
	}
}

func TestByTag_NoSubstringMatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rec := record("/vault/a.md", "Desk setup", task.StatusTodo, func(fm *task.Frontmatter) {
		fm.Tags = []string{"home-office"}
	})
	if err := db.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rows, err := db.ByTag(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("ByTag(home) matched %q", rows[0].Tags)
	}
}

func TestStalePaths(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, record("/vault/a.md", "A", task.StatusTodo, nil)); err != nil {
		t.Fatal(err)
	}

	stale, err := db.StalePaths(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Errorf("fresh row reported stale: %v", stale)
	}

	stale, err = db.StalePaths(ctx, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 {
		t.Errorf("stale = %v, want one path", stale)
	}
}
