package search

import (
	"strings"
)

// DefaultDateLayout renders entry dates into the haystack as a short
// numeric date ("3/14/25"), so a query such as "3/14" finds that day's jobs.
const DefaultDateLayout = "1/2/06"

// Tokenize splits query on runs of whitespace and lowercases each piece.
// Empty or whitespace-only input yields no tokens.
func Tokenize(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// Matcher tests entries against query tokens.
type Matcher struct {
	// DateLayout is the time layout used for the date component of the
	// haystack. Empty means DefaultDateLayout.
	DateLayout string
}

// Haystack concatenates the lowercased, trimmed, non-empty searchable fields
// of e (and of its resolved creator, when known), space separated.
func (m Matcher) Haystack(e IndexEntry, creator *Contributor) string {
	layout := m.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	var b strings.Builder
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(s))
	}

	add(e.Address)
	if e.JobNumber != nil {
		add(*e.JobNumber)
	}
	add(e.Status)
	add(e.Notes)
	add(e.Assignments)
	add(e.MaterialsUsed)
	add(e.NIDFootage)
	add(e.CANFootage)
	if !e.Date.IsZero() {
		add(e.Date.Format(layout))
	}
	if creator != nil {
		add(creator.DisplayName())
		add(creator.Position)
	}
	return b.String()
}

// Matches reports whether every token is a substring of e's haystack.
// An empty token list matches everything; callers that must not treat an
// empty query as "all" check for it before matching.
func (m Matcher) Matches(e IndexEntry, tokens []string, creator *Contributor) bool {
	if len(tokens) == 0 {
		return true
	}
	return containsAll(m.Haystack(e, creator), tokens)
}

func containsAll(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// Haystack is Matcher{}.Haystack with the default date layout.
func Haystack(e IndexEntry, creator *Contributor) string {
	return Matcher{}.Haystack(e, creator)
}

// Matches is Matcher{}.Matches with the default date layout.
func Matches(e IndexEntry, tokens []string, creator *Contributor) bool {
	return Matcher{}.Matches(e, tokens, creator)
}
