package store

import (
	"sync"
	"time"
)

type pendingWrite struct {
	mtime      time.Time
	registered time.Time
}

// SelfWriteRegistry tracks the expected post-write modification time of
// paths the store has just written. The sync engine asks it whether an
// observed change matches a pending registration; matched paths are still
// re-parsed but excluded from burst classification.
//
// Registrations are one-shot: a match consumes the entry. Stale entries
// expire after the grace period so a registration that never gets observed
// cannot mask a later external edit.
type SelfWriteRegistry struct {
	mu        sync.Mutex
	pending   map[string]pendingWrite
	grace     time.Duration
	tolerance time.Duration

	now func() time.Time // test seam
}

// NewSelfWriteRegistry creates a registry with the given grace period and
// mtime tolerance.
func NewSelfWriteRegistry(grace, tolerance time.Duration) *SelfWriteRegistry {
	return &SelfWriteRegistry{
		pending:   make(map[string]pendingWrite),
		grace:     grace,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Register records the expected modification time for a path the store has
// just written. A second registration for the same path replaces the first.
func (r *SelfWriteRegistry) Register(path string, mtime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[path] = pendingWrite{mtime: mtime, registered: r.now()}
}

// Match reports whether an observed modification time corresponds to a
// pending self-write for the path. A match consumes the registration.
func (r *SelfWriteRegistry) Match(path string, observed time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()

	p, ok := r.pending[path]
	if !ok {
		return false
	}

	delta := observed.Sub(p.mtime)
	if delta < 0 {
		delta = -delta
	}
	if delta > r.tolerance {
		return false
	}

	delete(r.pending, path)
	return true
}

// Forget drops any pending registration for the path.
func (r *SelfWriteRegistry) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, path)
}

// Len returns the number of pending registrations, after sweeping stale
// ones.
func (r *SelfWriteRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.pending)
}

func (r *SelfWriteRegistry) sweepLocked() {
	cutoff := r.now().Add(-r.grace)
	for path, p := range r.pending {
		if p.registered.Before(cutoff) {
			delete(r.pending, path)
		}
	}
}
