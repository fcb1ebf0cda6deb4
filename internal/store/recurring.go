package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/tasknest/tasknest/internal/task"
)

// Occurrence holds the dates computed for the next instance of a recurring
// task. Zero values leave the corresponding field unset.
type Occurrence struct {
	Due       time.Time
	DueTime   string
	Defer     time.Time
	Scheduled time.Time
}

// NextOccurrence computes the dates for the instance following a completion.
// Recurrence rule math lives outside this package; callers inject it here.
type NextOccurrence func(fm task.Frontmatter, completedAt time.Time) (Occurrence, error)

// ErrSpawnFailed marks a recurring completion whose next instance could not
// be created. The original file is already completed and is not rolled
// back; the next instance can be created manually. Losing a future
// instance is recoverable, silently resurrecting a completed one is not.
var ErrSpawnFailed = errors.New("next instance not created")

// CompleteRepeating completes a recurring task and spawns its next
// instance:
//
//  1. The current file is made an immutable historical record: the
//     recurrence key is stripped, status becomes done, completed is set.
//  2. The next occurrence's dates are computed via next, and a new file is
//     created carrying forward title, area, project, tags, priority and
//     body plus the same recurrence string, with status todo.
//
// For a file without a recurrence rule this degenerates to Complete and
// returns a nil spawned record.
//
// If spawning fails after step 1, the returned error wraps ErrSpawnFailed
// and the completed record is still returned alongside it.
func (s *Store) CompleteRepeating(path string, at time.Time, next NextOccurrence) (completed, spawned *task.Record, err error) {
	rec, err := s.Load(path)
	if err != nil {
		return nil, nil, err
	}

	rule := rec.Doc.Frontmatter.Recurrence
	if rule == "" {
		completed, err = s.Complete(path, at)
		return completed, nil, err
	}

	completed, err = s.Update(path, func(d *task.Document) error {
		d.Frontmatter.Recurrence = ""
		d.Frontmatter.Status = task.StatusDone
		d.Frontmatter.Completed = at
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	occ, err := next(rec.Doc.Frontmatter, at)
	if err != nil {
		return completed, nil, fmt.Errorf("%w: computing next occurrence: %v", ErrSpawnFailed, err)
	}

	prev := completed.Doc.Frontmatter
	nextDoc := &task.Document{
		Frontmatter: task.Frontmatter{
			Title:            prev.Title,
			Status:           task.StatusTodo,
			Due:              occ.Due,
			DueTime:          occ.DueTime,
			Defer:            occ.Defer,
			Scheduled:        occ.Scheduled,
			Priority:         prev.Priority,
			Area:             prev.Area,
			Project:          prev.Project,
			Tags:             append([]string(nil), prev.Tags...),
			Recurrence:       rule,
			EstimatedMinutes: prev.EstimatedMinutes,
			Created:          s.now(),
		},
		Body: completed.Doc.Body,
	}

	spawned, err = s.Create(nextDoc, "")
	if err != nil {
		return completed, nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	s.log.Info("spawned next recurring instance",
		"completed", completed.Filename,
		"spawned", spawned.Filename,
	)
	return completed, spawned, nil
}
