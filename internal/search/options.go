package search

import (
	"time"

	"golang.org/x/text/language"
)

// Option configures a Session.
type Option func(*config)

type config struct {
	debounce       time.Duration
	recentsLimit   int
	filtersPerKind int
	filtersTotal   int
	aggregate      bool
	dateLayout     string
	locale         language.Tag
	observer       func(RebuildStats)
}

// Defaults for Session.
const (
	DefaultDebounce     = 200 * time.Millisecond
	DefaultRecentsLimit = 12
)

func defaultConfig() config {
	return config{
		debounce:       DefaultDebounce,
		recentsLimit:   DefaultRecentsLimit,
		filtersPerKind: DefaultFiltersPerKind,
		filtersTotal:   DefaultFiltersTotal,
		aggregate:      true,
		dateLayout:     DefaultDateLayout,
		locale:         language.English,
	}
}

// WithDebounce sets the quiet period before a rebuild starts. Zero rebuilds
// immediately; negative values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithRecentsLimit caps the idle recents list (n >= 0).
func WithRecentsLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.recentsLimit = n
		}
	}
}

// WithQuickFilterLimits sets the per-kind and total quick-filter caps.
// Negative values are ignored.
func WithQuickFilterLimits(perKind, total int) Option {
	return func(c *config) {
		if perKind >= 0 {
			c.filtersPerKind = perKind
		}
		if total >= 0 {
			c.filtersTotal = total
		}
	}
}

// WithAggregation toggles grouping of results by (address, job number).
// When false the session publishes flat results.
func WithAggregation(on bool) Option {
	return func(c *config) { c.aggregate = on }
}

// WithDateLayout sets the layout used to render dates into the haystack.
func WithDateLayout(layout string) Option {
	return func(c *config) {
		if layout != "" {
			c.dateLayout = layout
		}
	}
}

// WithLocale sets the collation locale for address ordering.
func WithLocale(tag language.Tag) Option {
	return func(c *config) {
		if tag != language.Und {
			c.locale = tag
		}
	}
}

// WithObserver registers a callback invoked after every rebuild attempt,
// including stale and cancelled ones. It runs on the rebuild goroutine and
// must not block.
func WithObserver(fn func(RebuildStats)) Option {
	return func(c *config) { c.observer = fn }
}
