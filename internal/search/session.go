package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
)

// ErrClosed is returned by Settle once the session has been closed.
var ErrClosed = errors.New("search: session closed")

// rebuildHook runs after a rebuild computes its snapshot and before the
// publish check. Tests use it to stall a rebuild past a newer trigger.
// NewSession copies it, so changing it later never races with rebuilds.
var rebuildHook func(query string)

// Session owns one query and keeps a published Snapshot consistent with
// (query, corpus, directory). Query edits and upstream change notifications
// are debounced; every trigger takes a new sequence number and cancels the
// in-flight rebuild, and a rebuild publishes only if its sequence number is
// still the latest. All methods are safe for concurrent use.
type Session struct {
	cfg    config
	corpus CorpusSource
	dir    DirectorySource
	hook   func(query string)

	corpusCh chan events.Event
	dirCh    chan events.Event
	hub      *events.Hub

	ctx  context.Context
	stop context.CancelFunc
	done chan struct{}
	wg   sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	query     string
	seq       uint64
	timer     *time.Timer
	cancel    context.CancelFunc
	cancelSeq uint64
	snap      Snapshot
	settled   chan struct{}
}

// NewSession starts a session in the idle state. The initial snapshot is
// built before NewSession returns. Nil sources behave as empty ones.
func NewSession(corpus CorpusSource, dir DirectorySource, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		cfg:     cfg,
		hook:    rebuildHook,
		corpus:  corpus,
		dir:     dir,
		hub:     events.NewHub(),
		ctx:     ctx,
		stop:    stop,
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
	close(s.settled)

	s.snap, _ = build(ctx, 0, "", s.corpusSnapshot(), s.directorySnapshot(), cfg)

	if corpus != nil {
		s.corpusCh = corpus.Subscribe()
	}
	if dir != nil {
		s.dirCh = dir.Subscribe()
	}
	s.wg.Add(1)
	go s.watch()
	return s
}

func (s *Session) watch() {
	defer s.wg.Done()
	corpusCh, dirCh := s.corpusCh, s.dirCh
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-corpusCh:
			if !ok {
				corpusCh = nil
				continue
			}
			s.trigger(true)
		case _, ok := <-dirCh:
			if !ok {
				dirCh = nil
				continue
			}
			s.trigger(true)
		}
	}
}

func (s *Session) corpusSnapshot() Corpus {
	if s.corpus == nil {
		return Corpus{}
	}
	return s.corpus.Corpus()
}

func (s *Session) directorySnapshot() Directory {
	if s.dir == nil {
		return nil
	}
	return s.dir.Directory()
}

// SetQuery replaces the query text and schedules a debounced rebuild.
// Setting the current text again is a no-op.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	if s.closed || q == s.query {
		s.mu.Unlock()
		return
	}
	s.query = q
	s.mu.Unlock()
	s.trigger(true)
}

// Query returns the raw query text.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Refresh rebuilds now, without waiting for the debounce window.
func (s *Session) Refresh() { s.trigger(false) }

func (s *Session) trigger(debounce bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	select {
	case <-s.settled:
		s.settled = make(chan struct{})
	default:
	}

	d := time.Duration(0)
	if debounce {
		d = s.cfg.debounce
	}
	s.timer = time.AfterFunc(d, func() { s.run(seq) })
}

func (s *Session) run(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel, s.cancelSeq = cancel, seq
	query := s.query
	s.mu.Unlock()
	defer cancel()

	start := time.Now()
	corpus := s.corpusSnapshot()
	snap, ok := build(ctx, seq, query, corpus, s.directorySnapshot(), s.cfg)
	if s.hook != nil {
		s.hook(query)
	}

	stats := RebuildStats{Seq: seq, Query: query, Corpus: corpus.Len(), Matches: snap.Count}

	s.mu.Lock()
	if s.cancelSeq == seq {
		s.cancel = nil
	}
	switch {
	case !ok || ctx.Err() != nil:
		stats.Outcome = OutcomeCancelled
	case seq != s.seq || s.closed:
		stats.Outcome = OutcomeStale
	default:
		stats.Outcome = OutcomePublished
		s.snap = snap
		close(s.settled)
		s.hub.Publish(events.New(events.TypeSnapshot, map[string]any{
			"seq":   snap.Seq,
			"kind":  snap.State.Kind,
			"count": snap.Count,
		}))
	}
	s.mu.Unlock()

	stats.Duration = time.Since(start)
	if s.cfg.observer != nil {
		s.cfg.observer(stats)
	}
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// ViewState returns the latest published view state.
func (s *Session) ViewState() ViewState { return s.Snapshot().State }

// ResultCount returns the number of matched leaf entries (0 when idle).
func (s *Session) ResultCount() int { return s.Snapshot().Count }

// QuickFilters returns the latest quick filters.
func (s *Session) QuickFilters() []QuickFilter { return s.Snapshot().Filters }

// Resolve finds a result or aggregate by id in the latest snapshot. Ids that
// are no longer present report false.
func (s *Session) Resolve(id string) (Resolved, bool) {
	return s.Snapshot().Resolve(id)
}

// Job returns the full job for id when the live corpus holds it, otherwise a
// partial job synthesized from the matching index entry.
func (s *Session) Job(id string) (domain.Job, JobSource, bool) {
	corpus := s.corpusSnapshot()
	if j, ok := corpus.FindJob(id); ok {
		return j, JobFull, true
	}
	if e, ok := s.Snapshot().Entry(id); ok {
		return e.PartialJob(), JobPartial, true
	}
	if e, ok := corpus.FindEntry(id); ok {
		return e.PartialJob(), JobPartial, true
	}
	return domain.Job{}, "", false
}

// Settle blocks until no rebuild is pending, i.e. the published snapshot
// reflects the latest trigger.
func (s *Session) Settle(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if s.snap.Seq == s.seq {
			s.mu.Unlock()
			return nil
		}
		ch := s.settled
		s.mu.Unlock()

		select {
		case <-ch:
		case <-s.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe returns a channel receiving a search.snapshot event after every
// publish. Events carry the sequence number, view kind and count.
func (s *Session) Subscribe() chan events.Event { return s.hub.Subscribe() }

// Unsubscribe releases a channel returned by Subscribe.
func (s *Session) Unsubscribe(ch chan events.Event) { s.hub.Unsubscribe(ch) }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops the session. Pending and in-flight rebuilds are discarded.
// Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stop()
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	if s.corpus != nil && s.corpusCh != nil {
		s.corpus.Unsubscribe(s.corpusCh)
	}
	if s.dir != nil && s.dirCh != nil {
		s.dir.Unsubscribe(s.dirCh)
	}
}
