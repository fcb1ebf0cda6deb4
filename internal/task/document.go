// Package task provides the data model and frontmatter codec for tasknest
// task files.
//
// Each task is a single markdown file: a YAML frontmatter block delimited by
// "---" fences, followed by a free-form body. The frontmatter carries the
// structured fields; any key the codec does not recognize is captured
// verbatim and re-emitted on serialize, so third-party schema extensions
// survive a round trip through this package.
package task

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusSomeday    Status = "someday"
)

// IsValid reports whether s is one of the recognized statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled, StatusSomeday:
		return true
	}
	return false
}

// IsTerminal reports whether s represents a finished task.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority is the task priority level.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is one of the recognized priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// CreatedSentinel is the value substituted for a missing created timestamp.
// A missing created key never rejects a file; callers can detect the
// sentinel and backfill if they care.
var CreatedSentinel = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Frontmatter holds the structured header fields of a task file.
//
// Optional dates use the zero time.Time as "unset". Due, Defer and Scheduled
// are calendar dates (no time component); DueTime optionally narrows Due to
// a time of day. Created, Modified and Completed are full timestamps.
type Frontmatter struct {
	Title            string
	Status           Status
	Due              time.Time
	DueTime          string // "HH:MM", empty when unset
	Defer            time.Time
	Scheduled        time.Time
	Priority         Priority
	Flagged          bool
	Area             string
	Project          string
	Tags             []string
	Recurrence       string // opaque rule string, consumed externally
	EstimatedMinutes int    // 0 = unset
	Description      string
	Created          time.Time
	Modified         time.Time
	Completed        time.Time
	Source           string // free string identifying the writer
}

// UnknownField is a frontmatter key the codec does not recognize, preserved
// in document order for verbatim re-emission.
type UnknownField struct {
	Key   string
	Value *yaml.Node
}

// Document is the parsed form of one task file: typed frontmatter, the
// free-form body, and any unrecognized keys.
type Document struct {
	Frontmatter Frontmatter
	Body        string
	Unknown     []UnknownField
}

// Record pairs a parsed document with its on-disk identity. Path is the
// stable identity key for the life of the record; Filename is derived and
// display-only.
type Record struct {
	Path     string
	Filename string
	Doc      *Document
}

// Clone returns a deep copy of the document. Unknown field values share the
// underlying yaml nodes, which are treated as immutable after parse.
func (d *Document) Clone() *Document {
	out := &Document{
		Frontmatter: d.Frontmatter,
		Body:        d.Body,
	}
	if d.Frontmatter.Tags != nil {
		out.Frontmatter.Tags = append([]string(nil), d.Frontmatter.Tags...)
	}
	if d.Unknown != nil {
		out.Unknown = append([]UnknownField(nil), d.Unknown...)
	}
	return out
}
