package search

import (
	"time"
)

// ViewKind tags the active ViewState variant.
type ViewKind string

const (
	// ViewIdle: no query; Recents holds the newest entries.
	ViewIdle ViewKind = "idle"
	// ViewEmpty: a non-empty query matched nothing.
	ViewEmpty ViewKind = "empty"
	// ViewResults: a non-empty query matched at least one entry.
	ViewResults ViewKind = "results"
)

// Result is a flat display result: an entry plus its resolved creator.
type Result struct {
	ID      string       `json:"id"`
	Entry   IndexEntry   `json:"entry"`
	Creator *Contributor `json:"creator,omitempty"`
}

// ViewState is the presentation state of a session. Exactly one variant is
// active, selected by Kind. In aggregating sessions Results is empty and
// Aggregates holds the groups; flat sessions do the opposite. Count is always
// the number of matched leaf entries (0 when idle).
type ViewState struct {
	Kind       ViewKind    `json:"kind"`
	Query      string      `json:"query,omitempty"`
	Recents    []Result    `json:"recents,omitempty"`
	Results    []Result    `json:"results,omitempty"`
	Aggregates []Aggregate `json:"aggregates,omitempty"`
	Count      int         `json:"count"`
}

// Resolved is the target of a result id: either a flat Result or an
// Aggregate, never both.
type Resolved struct {
	Result    *Result
	Aggregate *Aggregate
}

// Snapshot is the unit of publication: a complete, immutable rebuild output.
type Snapshot struct {
	Seq     uint64
	State   ViewState
	Count   int
	Filters []QuickFilter
	BuiltAt time.Time

	lookup  map[string]Resolved
	entries map[string]IndexEntry
}

// Resolve finds a result or aggregate by id in this snapshot.
func (s Snapshot) Resolve(id string) (Resolved, bool) {
	r, ok := s.lookup[id]
	return r, ok
}

// Entry returns the index entry with the given id if it is part of this
// snapshot (a recent or a match).
func (s Snapshot) Entry(id string) (IndexEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// JobSource reports whether a job came from the live corpus or was
// synthesized from an index entry.
type JobSource string

const (
	JobFull    JobSource = "full"
	JobPartial JobSource = "partial"
)

// Outcome of a rebuild attempt.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeStale     Outcome = "stale"
	OutcomeCancelled Outcome = "cancelled"
)

// RebuildStats describes one rebuild attempt.
type RebuildStats struct {
	Seq      uint64
	Query    string
	Outcome  Outcome
	Duration time.Duration
	Corpus   int
	Matches  int
}
