package engine

import "time"

// Phases breaks a pass's wall time down by stage.
type Phases struct {
	Enumerate time.Duration `json:"enumerate"`
	Parse     time.Duration `json:"parse"`
	Index     time.Duration `json:"index"`
	Query     time.Duration `json:"query"`
}

// Summary is the immutable result of one sync pass.
type Summary struct {
	// PassID uniquely identifies the pass across restarts.
	PassID string `json:"pass_id"`
	// StartedAt is when the pass began, in UTC.
	StartedAt time.Time `json:"started_at"`

	// Ingested counts paths seen for the first time.
	Ingested int `json:"ingested"`
	// Updated counts known paths whose content changed.
	Updated int `json:"updated"`
	// Deleted counts known paths that disappeared.
	Deleted int `json:"deleted"`
	// Failed counts files that could not be parsed this pass.
	Failed int `json:"failed"`
	// Conflicts counts paths with unresolved concurrent versions.
	Conflicts int `json:"conflicts"`
	// SelfWrites counts changes matched against pending repository writes.
	SelfWrites int `json:"self_writes"`

	// Total is the number of canonical records after the pass.
	Total int `json:"total"`

	Phases Phases `json:"phases"`
}

// Quiet reports whether the pass observed no change at all.
func (s *Summary) Quiet() bool {
	return s.Ingested == 0 && s.Updated == 0 && s.Deleted == 0 &&
		s.Failed == 0 && s.Conflicts == 0 && s.SelfWrites == 0
}
