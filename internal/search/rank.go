package search

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Ranker orders entries newest first, breaking date ties by address
// (ascending, case-insensitive, locale-aware) and finally by id so equal
// records never swap between runs. A zero date sorts as the oldest.
//
// A Ranker wraps a collator and is not safe for concurrent use; build one per
// goroutine.
type Ranker struct {
	col *collate.Collator
}

// NewRanker returns a Ranker collating addresses for tag.
func NewRanker(tag language.Tag) *Ranker {
	return &Ranker{col: collate.New(tag, collate.IgnoreCase)}
}

// CompareAddress compares two addresses ignoring case and surrounding space.
func (r *Ranker) CompareAddress(a, b string) int {
	return r.col.CompareString(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Less reports whether a ranks before b.
func (r *Ranker) Less(a, b IndexEntry) bool {
	if c := compareDates(a.Date, b.Date); c != 0 {
		return c < 0
	}
	if c := r.CompareAddress(a.Address, b.Address); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

// SortEntries sorts entries in place.
func (r *Ranker) SortEntries(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return r.Less(entries[i], entries[j]) })
}

// SortAggregates orders aggregates by their newest member's date, then by
// representative address, then by key.
func (r *Ranker) SortAggregates(aggs []Aggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		a, b := aggs[i], aggs[j]
		if c := compareDates(a.Newest(), b.Newest()); c != 0 {
			return c < 0
		}
		if c := r.CompareAddress(a.Address, b.Address); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	})
}

// compareDates returns -1 when a is newer than b (a ranks first).
func compareDates(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.After(b):
		return -1
	case a.Before(b):
		return 1
	}
	return 0
}

func defaultRanker() *Ranker { return NewRanker(language.English) }

// Less ranks a before b using English collation.
func Less(a, b IndexEntry) bool { return defaultRanker().Less(a, b) }

// SortEntries sorts entries in place using English collation.
func SortEntries(entries []IndexEntry) { defaultRanker().SortEntries(entries) }

// SortAggregates sorts aggregates in place using English collation.
func SortAggregates(aggs []Aggregate) { defaultRanker().SortAggregates(aggs) }
