package search

import (
	"sort"
	"strings"
)

// FilterKind distinguishes status shortcuts from creator shortcuts.
type FilterKind string

const (
	FilterStatus  FilterKind = "status"
	FilterCreator FilterKind = "creator"
)

// Default quick-filter caps.
const (
	DefaultFiltersPerKind = 4
	DefaultFiltersTotal   = 8
)

// QuickFilter is a one-tap query suggestion derived from corpus frequency.
type QuickFilter struct {
	Kind  FilterKind `json:"kind"`
	Key   string     `json:"key"`
	Value string     `json:"value"`
	Count int        `json:"count"`
}

// Query is the search text selecting this filter is equivalent to typing.
func (f QuickFilter) Query() string { return f.Value }

// BuildQuickFilters returns the top perKind statuses followed by the top
// perKind creator names, capped at total. Within each kind filters are
// ordered by count descending, then case-insensitive name ascending. The
// display value is the first spelling seen, so callers pass entries in rank
// order to surface the newest spelling. Non-positive limits yield nothing.
func BuildQuickFilters(entries []IndexEntry, dir Directory, perKind, total int) []QuickFilter {
	if perKind <= 0 || total <= 0 {
		return []QuickFilter{}
	}

	statuses := newTally(FilterStatus)
	creators := newTally(FilterCreator)
	for _, e := range entries {
		statuses.add(e.Status)
		if c, ok := dir.Lookup(e.CreatedBy); ok {
			creators.add(c.DisplayName())
		}
	}

	out := make([]QuickFilter, 0, total)
	out = append(out, statuses.top(perKind)...)
	out = append(out, creators.top(perKind)...)
	if len(out) > total {
		out = out[:total]
	}
	return out
}

type tally struct {
	kind   FilterKind
	counts map[string]*QuickFilter
}

func newTally(kind FilterKind) *tally {
	return &tally{kind: kind, counts: make(map[string]*QuickFilter)}
}

func (t *tally) add(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if f, ok := t.counts[key]; ok {
		f.Count++
		return
	}
	t.counts[key] = &QuickFilter{Kind: t.kind, Key: key, Value: value, Count: 1}
}

func (t *tally) top(n int) []QuickFilter {
	out := make([]QuickFilter, 0, len(t.counts))
	for _, f := range t.counts {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
