package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

// Search and catalog collectors. Labels are fixed enums to keep cardinality
// bounded; queries and ids are never used as label values.
var (
	searchRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_rebuilds_total",
			Help: "Search session rebuild attempts by outcome (published, stale, cancelled).",
		},
		[]string{"outcome"},
	)

	searchRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_rebuild_duration_seconds",
			Help:    "Wall time of search session rebuilds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	searchSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sessions_active",
			Help: "Number of open search sessions.",
		},
	)

	catalogRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_jobs",
			Help: "Records held by the in-memory job catalog, by kind (full, index).",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(searchRebuilds, searchRebuildDuration, searchSessions, catalogRecords)
}

// ObserveRebuild records one rebuild attempt. It matches the signature
// expected by search.WithObserver.
func ObserveRebuild(st search.RebuildStats) {
	searchRebuilds.WithLabelValues(string(st.Outcome)).Inc()
	searchRebuildDuration.Observe(st.Duration.Seconds())
}

// SetActiveSessions publishes the current session count.
func SetActiveSessions(n int) { searchSessions.Set(float64(n)) }

// SetCatalogSize publishes the number of full jobs and bare index entries.
func SetCatalogSize(jobs, entries int) {
	catalogRecords.WithLabelValues("full").Set(float64(jobs))
	catalogRecords.WithLabelValues("index").Set(float64(entries))
}
