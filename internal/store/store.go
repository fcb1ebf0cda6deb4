// Package store provides file-level CRUD for task files in a vault folder.
//
// Every write goes through a temp-file-then-rename sequence, so no reader
// ever observes a partially written file, and every write is registered
// with the self-write registry so the sync engine can tell the store's own
// writes apart from external ones.
package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/tasknest/tasknest/internal/task"
)

// Config holds tunables for a Store.
type Config struct {
	// SelfWriteGrace is how long a self-write registration stays valid
	// before it is swept as stale.
	SelfWriteGrace time.Duration

	// SelfWriteTolerance is the maximum clock distance between a registered
	// and an observed modification time for them to count as the same
	// write. Requires sub-second filesystem mtime resolution.
	SelfWriteTolerance time.Duration

	// Logger for store activity. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SelfWriteGrace:     10 * time.Second,
		SelfWriteTolerance: 2 * time.Second,
	}
}

// Store performs task file CRUD under a single vault root.
type Store struct {
	root   string
	log    *slog.Logger
	writes *SelfWriteRegistry

	now func() time.Time // test seam
}

// New creates a Store rooted at the given directory.
func New(root string, config *Config) *Store {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		root:   root,
		log:    log,
		writes: NewSelfWriteRegistry(config.SelfWriteGrace, config.SelfWriteTolerance),
		now:    time.Now,
	}
}

// Root returns the vault root directory.
func (s *Store) Root() string { return s.root }

// SelfWrites returns the registry the sync engine consults to suppress
// feedback loops from the store's own writes.
func (s *Store) SelfWrites() *SelfWriteRegistry { return s.writes }

// Create writes a new task file, generating a collision-free filename from
// the title unless preferredFilename is given (which still gets collision
// suffixes applied). Returns the created record.
func (s *Store) Create(doc *task.Document, preferredFilename string) (*task.Record, error) {
	now := s.now()

	d := doc.Clone()
	if d.Frontmatter.Status == "" {
		d.Frontmatter.Status = task.StatusTodo
	}
	if d.Frontmatter.Created.IsZero() || d.Frontmatter.Created.Equal(task.CreatedSentinel) {
		d.Frontmatter.Created = now
	}

	name := preferredFilename
	if name == "" {
		name = task.Filename(d.Frontmatter.Title, now)
	}
	name = task.UniqueFilename(name, func(candidate string) bool {
		_, err := os.Stat(filepath.Join(s.root, candidate))
		return err == nil
	})

	path := filepath.Join(s.root, name)
	if err := s.writeDocument(path, d); err != nil {
		return nil, err
	}

	s.log.Debug("created task file", "path", path)
	return &task.Record{Path: path, Filename: name, Doc: d}, nil
}

// Load parses one task file. A header without a title gets a
// filename-derived one instead of being rejected.
func (s *Store) Load(path string) (*task.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	name := filepath.Base(path)
	doc, err := task.Parse(content, task.TitleFromFilename(name))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	return &task.Record{Path: path, Filename: name, Doc: doc}, nil
}

// Update loads a task file, applies the mutator in memory, bumps the
// modified timestamp, and writes the result atomically. Returns the updated
// record.
func (s *Store) Update(path string, mutate func(*task.Document) error) (*task.Record, error) {
	rec, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	if err := mutate(rec.Doc); err != nil {
		return nil, fmt.Errorf("mutating %s: %w", rec.Filename, err)
	}
	rec.Doc.Frontmatter.Modified = s.now()

	if err := s.writeDocument(path, rec.Doc); err != nil {
		return nil, err
	}

	s.log.Debug("updated task file", "path", path)
	return rec, nil
}

// Delete removes a task file and drops any pending self-write registration
// for it.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting task file: %w", err)
	}
	s.writes.Forget(path)
	s.log.Debug("deleted task file", "path", path)
	return nil
}

// Complete marks a task done at the given instant.
func (s *Store) Complete(path string, at time.Time) (*task.Record, error) {
	return s.Update(path, func(d *task.Document) error {
		d.Frontmatter.Status = task.StatusDone
		d.Frontmatter.Completed = at
		return nil
	})
}

// writeDocument serializes and writes atomically, then registers the
// resulting modification time as a self-write.
func (s *Store) writeDocument(path string, doc *task.Document) error {
	content, err := task.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", filepath.Base(path), err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat after write: %w", err)
	}
	s.writes.Register(path, info.ModTime())

	return nil
}
