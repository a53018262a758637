// Package search is the job search and aggregation engine. It turns a
// heterogeneous job corpus (full jobs plus bare shared-index entries) into
// lightweight IndexEntry values, matches free-text queries against them,
// ranks and aggregates the matches by (address, job number), computes
// quick-filter facets, and publishes immutable snapshots through a debounced,
// cancellable query Session.
//
// Properties:
//
//   - No logging in the library (callers observe rebuilds via WithObserver)
//   - Pure, deterministic building blocks: Tokenize, Matcher, Ranker,
//     AggregateEntries, BuildQuickFilters
//   - Functional options (Option pattern) for the tunable constants
//   - Lookups return (value, bool); only Session.Settle reports an error,
//     and only for context cancellation or a closed session
//   - Stale rebuilds never overwrite a newer query's snapshot
package search

import (
	"strings"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
)

// CorpusSource exposes the current job corpus and notifies on any add,
// update or remove. Corpus must return a snapshot that the caller may read
// without further synchronization.
type CorpusSource interface {
	Corpus() Corpus
	Subscribe() chan events.Event
	Unsubscribe(chan events.Event)
}

// DirectorySource exposes the user directory (creator id -> identity) and
// notifies on change.
type DirectorySource interface {
	Directory() Directory
	Subscribe() chan events.Event
	Unsubscribe(chan events.Event)
}

// Corpus is an immutable view of the searchable records: full jobs plus bare
// index entries for jobs whose full record is not held locally.
type Corpus struct {
	Jobs    []domain.Job
	Entries []IndexEntry

	byID map[string]int
}

// NewCorpus builds a Corpus with an id index over jobs. The slices are
// retained, so callers must not mutate them afterwards.
func NewCorpus(jobs []domain.Job, entries []IndexEntry) Corpus {
	byID := make(map[string]int, len(jobs))
	for i, j := range jobs {
		if _, dup := byID[j.ID]; !dup {
			byID[j.ID] = i
		}
	}
	return Corpus{Jobs: jobs, Entries: entries, byID: byID}
}

// Len returns the number of raw records (jobs plus bare entries).
func (c Corpus) Len() int { return len(c.Jobs) + len(c.Entries) }

// FindJob returns the full job with the given id.
func (c Corpus) FindJob(id string) (domain.Job, bool) {
	if c.byID != nil {
		if i, ok := c.byID[id]; ok {
			return c.Jobs[i], true
		}
		return domain.Job{}, false
	}
	for _, j := range c.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return domain.Job{}, false
}

// FindEntry returns the bare index entry with the given id.
func (c Corpus) FindEntry(id string) (IndexEntry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// IndexEntries normalizes the corpus into one entry per id. A full job wins
// over a bare entry with the same id; records without an id are skipped.
func (c Corpus) IndexEntries() []IndexEntry {
	out := make([]IndexEntry, 0, c.Len())
	seen := make(map[string]struct{}, c.Len())
	for _, j := range c.Jobs {
		if j.ID == "" {
			continue
		}
		if _, ok := seen[j.ID]; ok {
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, FromJob(j))
	}
	for _, e := range c.Entries {
		if e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e.Normalize())
	}
	return out
}

// Contributor is the display identity of a job's creator.
type Contributor struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position,omitempty"`
}

// DisplayName is "First Last" with blanks skipped.
func (c Contributor) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// ContributorFromUser converts a directory user.
func ContributorFromUser(u domain.User) Contributor {
	return Contributor{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Position: u.Position}
}

// Directory maps creator ids to identities. A nil Directory resolves nothing.
type Directory map[string]Contributor

// NewDirectory indexes users by id.
func NewDirectory(users []domain.User) Directory {
	d := make(Directory, len(users))
	for _, u := range users {
		if u.ID != "" {
			d[u.ID] = ContributorFromUser(u)
		}
	}
	return d
}

// Lookup resolves a creator id. Absent or blank ids are unresolvable.
func (d Directory) Lookup(id *string) (Contributor, bool) {
	if id == nil || d == nil {
		return Contributor{}, false
	}
	key := strings.TrimSpace(*id)
	if key == "" {
		return Contributor{}, false
	}
	c, ok := d[key]
	return c, ok
}

// resolve is Lookup returning a pointer for optional use.
func (d Directory) resolve(id *string) *Contributor {
	c, ok := d.Lookup(id)
	if !ok {
		return nil
	}
	return &c
}
