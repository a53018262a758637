// Package services – SearchService
//
// SearchService keeps a registry of live search sessions keyed by UUID. Each
// session reads the catalog and directory snapshots and rebuilds on their
// change events. Idle sessions expire after TTL (swept opportunistically on
// Create and by the scheduler) and the registry is capped at MaxSessions by
// evicting the least recently used session.
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-jobsearch-backend/internal/observability"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

type sessionEntry struct {
	s        *search.Session
	lastUsed time.Time
}

// SearchService manages search sessions.
type SearchService struct {
	Corpus      search.CorpusSource
	Directory   search.DirectorySource
	Options     []search.Option
	TTL         time.Duration
	MaxSessions int

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSearchService wires sessions to the given sources. Rebuild statistics
// are exported as Prometheus metrics.
func NewSearchService(corpus search.CorpusSource, dir search.DirectorySource, ttl time.Duration, maxSessions int, opts ...search.Option) *SearchService {
	return &SearchService{
		Corpus:      corpus,
		Directory:   dir,
		Options:     append(append([]search.Option(nil), opts...), search.WithObserver(observability.ObserveRebuild)),
		TTL:         ttl,
		MaxSessions: maxSessions,
		now:         time.Now,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Create opens a session and, when query is non-empty, sets it. It does not
// wait for the first rebuild.
func (s *SearchService) Create(ctx context.Context, query string) (string, *search.Session) {
	_, span := otel.Tracer("services/SearchService").Start(ctx, "Create")
	defer span.End()

	s.Sweep()

	sess := search.NewSession(s.Corpus, s.Directory, s.Options...)
	if query != "" {
		sess.SetQuery(query)
	}
	id := uuid.NewString()

	s.mu.Lock()
	if s.MaxSessions > 0 {
		for len(s.sessions) >= s.MaxSessions {
			s.evictOldestLocked()
		}
	}
	s.sessions[id] = &sessionEntry{s: sess, lastUsed: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(n)
	span.SetAttributes(attribute.String("session.id", id))
	return id, sess
}

func (s *SearchService) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range s.sessions {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID == "" {
		return
	}
	s.sessions[oldestID].s.Close()
	delete(s.sessions, oldestID)
}

// Get returns a live session and marks it used.
func (s *SearchService) Get(id string) (*search.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastUsed = s.now()
	return e.s, nil
}

// SetQuery updates a session's query. With wait it blocks until the rebuild
// for the new query is published or ctx ends.
func (s *SearchService) SetQuery(ctx context.Context, id, query string, wait bool) (search.Snapshot, error) {
	ctx, span := otel.Tracer("services/SearchService").Start(ctx, "SetQuery",
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.Bool("wait", wait),
		),
	)
	defer span.End()

	sess, err := s.Get(id)
	if err != nil {
		return search.Snapshot{}, err
	}
	sess.SetQuery(query)
	if wait {
		if err := sess.Settle(ctx); err != nil {
			return search.Snapshot{}, err
		}
	}
	return sess.Snapshot(), nil
}

// Close ends a session.
func (s *SearchService) Close(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.s.Close()
	observability.SetActiveSessions(n)
	return nil
}

// Sweep closes sessions idle longer than TTL and returns how many it closed.
func (s *SearchService) Sweep() int {
	if s.TTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.TTL)

	s.mu.Lock()
	var expired []*search.Session
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.s)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	observability.SetActiveSessions(n)
	return len(expired)
}

// CloseAll ends every session.
func (s *SearchService) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()
	for _, e := range all {
		e.s.Close()
	}
	observability.SetActiveSessions(0)
}

// IDs lists open session ids, sorted.
func (s *SearchService) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of open sessions.
func (s *SearchService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
