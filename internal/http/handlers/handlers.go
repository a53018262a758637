package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// JobService is the job catalog as seen by the HTTP layer.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JobService interface {
	// CreateJobIdempotent stores a job; a retried (userID, scope, key)
	// returns the first job with replay=true.
	CreateJobIdempotent(ctx context.Context, userID, scope, key string, j domain.Job) (*domain.Job, bool, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	// ListPage returns a page of jobs (newest first) and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Job, int64, error)
	// Stats returns the job count and the latest update time.
	Stats(ctx context.Context) (int64, *time.Time, error)
	UpdateJob(ctx context.Context, id string, p services.JobPatch) (*domain.Job, error)
	DeleteJob(ctx context.Context, id string) error
	// ImportEntries upserts bare shared-index entries.
	ImportEntries(ctx context.Context, entries []search.IndexEntry) (int, error)
	DeleteEntry(ctx context.Context, id string) error
}

// UserService is the crew directory.
type UserService interface {
	Upsert(ctx context.Context, u domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.User, error)
}

// SessionService owns live search sessions.
type SessionService interface {
	Create(ctx context.Context, query string) (string, *search.Session)
	Get(id string) (*search.Session, error)
	// SetQuery updates the query; with wait it returns the settled snapshot.
	SetQuery(ctx context.Context, id, query string, wait bool) (search.Snapshot, error)
	Close(id string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for jobs, users and search sessions.
type Handlers struct {
	jobs     JobService
	users    UserService
	sessions SessionService

	// PingEvery is the keep-alive interval of event streams.
	PingEvery time.Duration
}

// New constructs Handlers bound to the given services.
func New(jobs JobService, users UserService, sessions SessionService) *Handlers {
	return &Handlers{
		jobs:      jobs,
		users:     users,
		sessions:  sessions,
		PingEvery: 15 * time.Second,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
