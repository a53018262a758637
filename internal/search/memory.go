package search

import (
	"sync"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
)

// MemoryCorpus is an in-memory CorpusSource. Every mutation swaps the
// snapshot and notifies subscribers.
type MemoryCorpus struct {
	mu     sync.RWMutex
	corpus Corpus
	hub    *events.Hub
}

// NewMemoryCorpus returns a source holding jobs and bare entries.
func NewMemoryCorpus(jobs []domain.Job, entries []IndexEntry) *MemoryCorpus {
	return &MemoryCorpus{
		corpus: NewCorpus(append([]domain.Job(nil), jobs...), append([]IndexEntry(nil), entries...)),
		hub:    events.NewHub(),
	}
}

func (m *MemoryCorpus) Corpus() Corpus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.corpus
}

func (m *MemoryCorpus) Subscribe() chan events.Event { return m.hub.Subscribe() }
func (m *MemoryCorpus) Unsubscribe(ch chan events.Event) { m.hub.Unsubscribe(ch) }

// Set replaces the whole corpus.
func (m *MemoryCorpus) Set(jobs []domain.Job, entries []IndexEntry) {
	m.mu.Lock()
	m.corpus = NewCorpus(append([]domain.Job(nil), jobs...), append([]IndexEntry(nil), entries...))
	m.mu.Unlock()
	m.hub.Publish(events.New(events.TypeJobsChanged, nil))
}

// Put adds or replaces a full job.
func (m *MemoryCorpus) Put(j domain.Job) {
	m.mu.Lock()
	jobs := make([]domain.Job, 0, len(m.corpus.Jobs)+1)
	replaced := false
	for _, cur := range m.corpus.Jobs {
		if cur.ID == j.ID {
			jobs = append(jobs, j)
			replaced = true
			continue
		}
		jobs = append(jobs, cur)
	}
	if !replaced {
		jobs = append(jobs, j)
	}
	m.corpus = NewCorpus(jobs, m.corpus.Entries)
	m.mu.Unlock()
	m.hub.Publish(events.New(events.TypeJobsChanged, map[string]string{"id": j.ID}))
}

// Remove deletes a job or bare entry by id.
func (m *MemoryCorpus) Remove(id string) {
	m.mu.Lock()
	jobs := make([]domain.Job, 0, len(m.corpus.Jobs))
	for _, cur := range m.corpus.Jobs {
		if cur.ID != id {
			jobs = append(jobs, cur)
		}
	}
	entries := make([]IndexEntry, 0, len(m.corpus.Entries))
	for _, cur := range m.corpus.Entries {
		if cur.ID != id {
			entries = append(entries, cur)
		}
	}
	m.corpus = NewCorpus(jobs, entries)
	m.mu.Unlock()
	m.hub.Publish(events.New(events.TypeJobsChanged, map[string]string{"id": id}))
}

// MemoryDirectory is an in-memory DirectorySource.
type MemoryDirectory struct {
	mu  sync.RWMutex
	dir Directory
	hub *events.Hub
}

// NewMemoryDirectory returns a source holding users.
func NewMemoryDirectory(users []domain.User) *MemoryDirectory {
	return &MemoryDirectory{dir: NewDirectory(users), hub: events.NewHub()}
}

func (m *MemoryDirectory) Directory() Directory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dir
}

func (m *MemoryDirectory) Subscribe() chan events.Event { return m.hub.Subscribe() }
func (m *MemoryDirectory) Unsubscribe(ch chan events.Event) { m.hub.Unsubscribe(ch) }

// Put adds or replaces a user.
func (m *MemoryDirectory) Put(u domain.User) {
	m.mu.Lock()
	next := make(Directory, len(m.dir)+1)
	for k, v := range m.dir {
		next[k] = v
	}
	next[u.ID] = ContributorFromUser(u)
	m.dir = next
	m.mu.Unlock()
	m.hub.Publish(events.New(events.TypeUsersChanged, map[string]string{"id": u.ID}))
}

// Remove deletes a user.
func (m *MemoryDirectory) Remove(id string) {
	m.mu.Lock()
	next := make(Directory, len(m.dir))
	for k, v := range m.dir {
		if k != id {
			next[k] = v
		}
	}
	m.dir = next
	m.mu.Unlock()
	m.hub.Publish(events.New(events.TypeUsersChanged, map[string]string{"id": id}))
}
