package engine

import (
	"time"

	"github.com/tasknest/tasknest/internal/task"
)

// Diagnostic records a per-file failure observed during a pass. Files with
// diagnostics are never deleted or overwritten by the engine; the previous
// good record, if any, stays canonical.
type Diagnostic struct {
	Path   string
	Reason string
}

// State is the engine's between-pass baseline: the modification time last
// observed per path, the canonical records, and outstanding diagnostics.
// It is threaded explicitly through Run rather than held in the engine, so
// independent engine instances never share hidden state. A State given to
// Run is not mutated; Run returns its successor.
type State struct {
	observed    map[string]time.Time
	records     map[string]*task.Record
	diagnostics map[string]Diagnostic
}

// NewState returns an empty baseline. The first pass against it ingests
// every conforming file.
func NewState() *State {
	return &State{
		observed:    make(map[string]time.Time),
		records:     make(map[string]*task.Record),
		diagnostics: make(map[string]Diagnostic),
	}
}

// Record returns the canonical record for path, if one exists.
func (s *State) Record(path string) (*task.Record, bool) {
	r, ok := s.records[path]
	return r, ok
}

// Records returns all canonical records. The slice is freshly allocated;
// the records themselves are shared and must be treated as read-only.
func (s *State) Records() []*task.Record {
	out := make([]*task.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// Diagnostics returns the outstanding per-file failures.
func (s *State) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(s.diagnostics))
	for _, d := range s.diagnostics {
		out = append(out, d)
	}
	return out
}

// Len reports the number of canonical records.
func (s *State) Len() int { return len(s.records) }

// clone returns a successor state sharing no map structure with s.
func (s *State) clone() *State {
	next := &State{
		observed:    make(map[string]time.Time, len(s.observed)),
		records:     make(map[string]*task.Record, len(s.records)),
		diagnostics: make(map[string]Diagnostic, len(s.diagnostics)),
	}
	for k, v := range s.observed {
		next.observed[k] = v
	}
	for k, v := range s.records {
		next.records[k] = v
	}
	for k, v := range s.diagnostics {
		next.diagnostics[k] = v
	}
	return next
}
