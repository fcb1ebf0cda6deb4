package engine

import "github.com/tasknest/tasknest/internal/task"

// Event is the interface implemented by all sync pass events.
type Event interface {
	isEvent()
}

// Created is emitted when a pass ingests a path it had not seen before.
type Created struct {
	Path   string
	Record *task.Record
}

func (Created) isEvent() {}

// Updated is emitted when a known path re-parses with new content.
type Updated struct {
	Path   string
	Record *task.Record
}

func (Updated) isEvent() {}

// Deleted is emitted when a previously known path is no longer present.
type Deleted struct {
	Path string
}

func (Deleted) isEvent() {}

// Conflict is emitted when the sync provider reports unresolved concurrent
// versions for a path. The canonical record is left untouched until the
// conflict is resolved, so the event re-surfaces every pass.
type Conflict struct {
	Path         string
	VersionCount int
}

func (Conflict) isEvent() {}

// RateLimitedBatch replaces the individual Created events for one source
// when a pass ingests more new files from that source than the configured
// burst threshold. The records are still ingested; the event is advisory.
type RateLimitedBatch struct {
	Source string
	Paths  []string
}

func (RateLimitedBatch) isEvent() {}
