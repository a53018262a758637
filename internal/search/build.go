package search

import (
	"context"
	"strings"
	"time"
)

// cancellation is polled every this many entries while matching.
const checkEvery = 256

// Build computes a complete snapshot for query over corpus and dir. It is
// deterministic for a fixed (query, corpus, directory) triple.
func Build(query string, corpus Corpus, dir Directory, opts ...Option) Snapshot {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	snap, _ := build(context.Background(), 0, query, corpus, dir, cfg)
	return snap
}

// build returns false when ctx is cancelled before the snapshot is complete.
func build(ctx context.Context, seq uint64, query string, corpus Corpus, dir Directory, cfg config) (Snapshot, bool) {
	ranker := NewRanker(cfg.locale)

	ranked := corpus.IndexEntries()
	ranker.SortEntries(ranked)

	snap := Snapshot{
		Seq:     seq,
		Filters: BuildQuickFilters(ranked, dir, cfg.filtersPerKind, cfg.filtersTotal),
		BuiltAt: time.Now().UTC(),
		lookup:  make(map[string]Resolved),
		entries: make(map[string]IndexEntry),
	}

	trimmed := strings.TrimSpace(query)
	tokens := Tokenize(trimmed)

	if len(tokens) == 0 {
		n := cfg.recentsLimit
		if n > len(ranked) {
			n = len(ranked)
		}
		recents := make([]Result, 0, n)
		for _, e := range ranked[:n] {
			recents = append(recents, snap.addResult(e, dir))
		}
		snap.State = ViewState{Kind: ViewIdle, Recents: recents}
		return snap, true
	}

	m := Matcher{DateLayout: cfg.dateLayout}
	matched := make([]IndexEntry, 0)
	for i, e := range ranked {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return Snapshot{}, false
		}
		if m.Matches(e, tokens, dir.resolve(e.CreatedBy)) {
			matched = append(matched, e)
		}
	}
	if ctx.Err() != nil {
		return Snapshot{}, false
	}

	if len(matched) == 0 {
		snap.State = ViewState{Kind: ViewEmpty, Query: trimmed}
		return snap, true
	}

	state := ViewState{Kind: ViewResults, Query: trimmed, Count: len(matched)}
	results := make([]Result, 0, len(matched))
	for _, e := range matched {
		results = append(results, snap.addResult(e, dir))
	}
	if cfg.aggregate {
		state.Aggregates = ranker.Aggregate(matched, dir)
		for i := range state.Aggregates {
			agg := state.Aggregates[i]
			snap.lookup[agg.ID] = Resolved{Aggregate: &agg}
		}
	} else {
		state.Results = results
	}

	snap.State = state
	snap.Count = len(matched)
	return snap, true
}

func (s *Snapshot) addResult(e IndexEntry, dir Directory) Result {
	r := Result{ID: e.ID, Entry: e, Creator: dir.resolve(e.CreatedBy)}
	rr := r
	s.lookup[e.ID] = Resolved{Result: &rr}
	s.entries[e.ID] = e
	return r
}
