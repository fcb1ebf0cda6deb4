// Package engine runs sync passes over a task folder: enumerate the
// conforming files, re-parse what changed since the last pass, detect
// deletions, conflicts, and ingestion bursts, and report the outcome as
// an immutable Summary plus an ordered Event list.
//
// A pass has no partial-commit state. If one is cancelled, the next pass
// simply resumes from the same baseline State.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/conflict"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
)

// Materializer hydrates cloud-only placeholder files before they are
// read. The default implementation does nothing; sync clients that keep
// dehydrated stubs on disk plug in their own.
type Materializer interface {
	Materialize(ctx context.Context, path string) error
}

type nopMaterializer struct{}

func (nopMaterializer) Materialize(context.Context, string) error { return nil }

// Config holds the engine's collaborators and tuning.
type Config struct {
	// BurstThreshold is the number of new, non-self-written files one
	// source may contribute per pass before the pass reports them as a
	// single rate-limited batch. Zero or negative disables detection.
	BurstThreshold int

	// SelfWrites is the repository's pending-write registry, consulted to
	// keep the system's own writes out of burst classification. Nil means
	// every change is treated as external.
	SelfWrites *store.SelfWriteRegistry

	// Conflicts reports unresolved concurrent versions per path. Nil
	// means no conflict detection.
	Conflicts conflict.Provider

	// Materializer hydrates placeholder files before reading. Nil means
	// files are assumed fully present.
	Materializer Materializer

	// Logger for pass activity. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultBurstThreshold is used by DefaultConfig; tune per deployment.
const DefaultBurstThreshold = 25

// DefaultConfig returns sensible defaults with no collaborators wired.
func DefaultConfig() *Config {
	return &Config{
		BurstThreshold: DefaultBurstThreshold,
		Conflicts:      conflict.NopProvider{},
	}
}

// Engine executes sync passes against a root folder. It holds no
// between-pass state; callers thread a State through Run.
type Engine struct {
	root    string
	config  *Config
	log     *slog.Logger
	conf    conflict.Provider
	mat     Materializer
	now     func() time.Time
	passIDs func() string
}

// New creates an engine for the folder at root.
func New(root string, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	conf := config.Conflicts
	if conf == nil {
		conf = conflict.NopProvider{}
	}
	mat := config.Materializer
	if mat == nil {
		mat = nopMaterializer{}
	}
	return &Engine{
		root:    root,
		config:  config,
		log:     log,
		conf:    conf,
		mat:     mat,
		now:     time.Now,
		passIDs: uuid.NewString,
	}
}

// Run executes one pass from the given baseline and returns the summary,
// the ordered event list, and the successor state. prev is not mutated.
//
// Run is not reentrant; callers serialize passes (the scheduler already
// guarantees at most one in flight).
func (e *Engine) Run(ctx context.Context, prev *State) (*Summary, []Event, *State, error) {
	if prev == nil {
		prev = NewState()
	}
	next := prev.clone()

	summary := &Summary{
		PassID:    e.passIDs(),
		StartedAt: e.now().UTC(),
	}

	phaseStart := e.now()
	paths, err := e.enumerate(ctx)
	if err != nil {
		return nil, nil, prev, err
	}
	summary.Phases.Enumerate = e.now().Sub(phaseStart)

	var events []Event
	burst := make(map[string][]string) // source -> new non-self-written paths
	var created []Created

	var parseTime, queryTime time.Duration
	phaseStart = e.now()

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, prev, err
		}

		mtime, ok := p.changedSince(prev)
		if !ok {
			continue
		}

		// Unresolved concurrent versions block ingestion: the local
		// record and baseline stay put so the conflict re-surfaces until
		// resolved, and no version gets silently overwritten.
		queryStart := e.now()
		versions, err := e.conf.ListUnresolvedVersions(p.path)
		queryTime += e.now().Sub(queryStart)
		if err != nil {
			e.log.Warn("conflict query failed", "path", p.path, "error", err)
		}
		if len(versions) > 0 {
			summary.Conflicts++
			events = append(events, Conflict{Path: p.path, VersionCount: len(versions)})
			continue
		}

		selfWrite := e.config.SelfWrites != nil && e.config.SelfWrites.Match(p.path, mtime)

		parseStart := e.now()
		rec, err := e.parseFile(ctx, p.path)
		parseTime += e.now().Sub(parseStart)
		if err != nil {
			summary.Failed++
			next.diagnostics[p.path] = Diagnostic{Path: p.path, Reason: err.Error()}
			next.observed[p.path] = mtime
			e.log.Warn("file not ingested", "path", p.path, "reason", err)
			continue
		}

		_, known := prev.records[p.path]
		next.records[p.path] = rec
		next.observed[p.path] = mtime
		delete(next.diagnostics, p.path)

		switch {
		case selfWrite:
			summary.SelfWrites++
		case known:
			summary.Updated++
			events = append(events, Updated{Path: p.path, Record: rec})
		default:
			summary.Ingested++
			created = append(created, Created{Path: p.path, Record: rec})
			source := rec.Doc.Frontmatter.Source
			burst[source] = append(burst[source], p.path)
		}
	}
	summary.Phases.Parse = parseTime
	summary.Phases.Query = queryTime

	phaseStart = e.now()

	// Sources over the burst threshold collapse into one advisory event;
	// their records are ingested either way.
	limited := make(map[string]bool)
	if e.config.BurstThreshold > 0 {
		sources := make([]string, 0, len(burst))
		for source, group := range burst {
			if len(group) > e.config.BurstThreshold {
				sources = append(sources, source)
			}
		}
		sort.Strings(sources)
		for _, source := range sources {
			group := burst[source]
			sort.Strings(group)
			limited[source] = true
			events = append(events, RateLimitedBatch{Source: source, Paths: group})
			e.log.Warn("ingestion burst", "source", source, "count", len(group))
		}
	}
	for _, c := range created {
		if !limited[c.Record.Doc.Frontmatter.Source] {
			events = append(events, c)
		}
	}

	// Known paths no longer on disk.
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p.path] = true
	}
	var gone []string
	for path := range prev.records {
		if !present[path] {
			gone = append(gone, path)
		}
	}
	sort.Strings(gone)
	for _, path := range gone {
		summary.Deleted++
		events = append(events, Deleted{Path: path})
		delete(next.records, path)
		delete(next.observed, path)
		delete(next.diagnostics, path)
	}
	// Observed-but-never-parsed paths that vanished drop silently.
	for path := range prev.observed {
		if !present[path] {
			delete(next.observed, path)
			delete(next.diagnostics, path)
		}
	}

	summary.Total = len(next.records)
	summary.Phases.Index = e.now().Sub(phaseStart)

	if !summary.Quiet() {
		e.log.Info("sync pass",
			"pass", summary.PassID,
			"ingested", summary.Ingested,
			"updated", summary.Updated,
			"deleted", summary.Deleted,
			"failed", summary.Failed,
			"conflicts", summary.Conflicts,
			"total", summary.Total)
	}

	return summary, events, next, nil
}

type enumerated struct {
	path  string
	mtime time.Time
}

// changedSince reports whether the path needs re-parsing against the
// baseline. Comparison is exact, so sub-second mtime changes count.
func (p enumerated) changedSince(prev *State) (time.Time, bool) {
	last, seen := prev.observed[p.path]
	if seen && p.mtime.Equal(last) {
		return p.mtime, false
	}
	return p.mtime, true
}

// enumerate walks the root collecting conforming files in sorted order.
// Dotfiles and dot-directories are skipped, as is the ordering manifest.
func (e *Engine) enumerate(ctx context.Context) ([]enumerated, error) {
	var out []enumerated
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == e.root {
				return fmt.Errorf("enumerating %s: %w", e.root, err)
			}
			e.log.Warn("enumeration error", "path", path, "error", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != e.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || name == store.ManifestName {
			return nil
		}
		if !strings.HasSuffix(name, task.Extension) {
			return nil
		}
		if conflict.IsConflictCopy(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			e.log.Warn("stat failed", "path", path, "error", err)
			return nil
		}
		out = append(out, enumerated{path: path, mtime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// parseFile materializes and parses one file. Errors are per-file; the
// caller records a diagnostic and moves on.
func (e *Engine) parseFile(ctx context.Context, path string) (*task.Record, error) {
	if err := e.mat.Materialize(ctx, path); err != nil {
		return nil, fmt.Errorf("materializing placeholder: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	doc, err := task.Parse(content, task.TitleFromFilename(name))
	if err != nil {
		return nil, err
	}
	return &task.Record{Path: path, Filename: name, Doc: doc}, nil
}
