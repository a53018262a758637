// Package services – Catalog
//
// Catalog owns the job corpus. It persists jobs and shared-index entries
// through the repo layer and keeps an immutable in-memory snapshot that
// search sessions read without locking. Every write swaps the snapshot
// wholesale and notifies subscribers; Reload resyncs from the database and
// notifies only when the data actually changed.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
	"github.com/tbourn/go-jobsearch-backend/internal/observability"
	"github.com/tbourn/go-jobsearch-backend/internal/repo"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

// ChangeNotifier propagates a local change to other instances.
type ChangeNotifier interface {
	Notify(ctx context.Context, typ string) error
}

// JobPatch is a partial update. Nil fields are left unchanged. For JobNumber
// and CreatedBy an empty string clears the value.
type JobPatch struct {
	Address       *string    `json:"address,omitempty"`
	JobNumber     *string    `json:"job_number,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	CreatedBy     *string    `json:"created_by,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	MaterialsUsed *string    `json:"materials_used,omitempty"`
	Assignments   *string    `json:"assignments,omitempty"`
	NIDFootage    *string    `json:"nid_footage,omitempty"`
	CANFootage    *string    `json:"can_footage,omitempty"`
	Hours         *float64   `json:"hours,omitempty"`
	Photos        *[]string  `json:"photos,omitempty"`
}

type catalogSnapshot struct {
	corpus      search.Corpus
	fingerprint uint64
}

// Catalog implements search.CorpusSource over the database.
type Catalog struct {
	DB *gorm.DB
	// Notifier is optional.
	Notifier ChangeNotifier
	// IdempotencyTTL bounds how long a create can be replayed.
	IdempotencyTTL time.Duration

	hub    *events.Hub
	snap   atomic.Pointer[catalogSnapshot]
	reload sync.Mutex
}

// NewCatalog returns an empty catalog; call Reload to load the database.
func NewCatalog(db *gorm.DB) *Catalog {
	c := &Catalog{DB: db, IdempotencyTTL: 24 * time.Hour, hub: events.NewHub()}
	c.snap.Store(&catalogSnapshot{corpus: search.NewCorpus(nil, nil)})
	return c
}

// Corpus returns the current snapshot.
func (c *Catalog) Corpus() search.Corpus { return c.snap.Load().corpus }

// Subscribe registers for jobs.changed events.
func (c *Catalog) Subscribe() chan events.Event { return c.hub.Subscribe() }

// Unsubscribe releases a subscription.
func (c *Catalog) Unsubscribe(ch chan events.Event) { c.hub.Unsubscribe(ch) }

// Reload loads every job and shared-index row and swaps the snapshot. It
// reports whether anything changed since the previous load.
func (c *Catalog) Reload(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "Reload")
	defer span.End()

	c.reload.Lock()
	defer c.reload.Unlock()

	jobs, err := repo.ListJobs(ctx, c.DB)
	if err != nil {
		return false, fmt.Errorf("load jobs: %w", err)
	}
	recs, err := repo.ListIndexRecords(ctx, c.DB)
	if err != nil {
		return false, fmt.Errorf("load index: %w", err)
	}
	entries := make([]search.IndexEntry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, search.FromRecord(r))
	}

	fp := fingerprint(jobs, recs)
	if prev := c.snap.Load(); prev != nil && prev.fingerprint == fp && prev.corpus.Len() == len(jobs)+len(recs) {
		return false, nil
	}
	c.snap.Store(&catalogSnapshot{corpus: search.NewCorpus(jobs, entries), fingerprint: fp})
	observability.SetCatalogSize(len(jobs), len(entries))
	span.SetAttributes(attribute.Int("catalog.jobs", len(jobs)), attribute.Int("catalog.entries", len(entries)))

	c.hub.Publish(events.New(events.TypeJobsChanged, map[string]int{"jobs": len(jobs), "entries": len(entries)}))
	return true, nil
}

// fingerprint hashes ids and update times; any write changes it.
func fingerprint(jobs []domain.Job, recs []domain.IndexRecord) uint64 {
	h := fnv.New64a()
	for _, j := range jobs {
		fmt.Fprintf(h, "j:%s:%d;", j.ID, j.UpdatedAt.UnixNano())
	}
	for _, r := range recs {
		fmt.Fprintf(h, "r:%s:%d;", r.ID, r.UpdatedAt.UnixNano())
	}
	return h.Sum64()
}

// changed reloads after a local write and fans the change out.
func (c *Catalog) changed(ctx context.Context) {
	if _, err := c.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("catalog reload after write failed")
	}
	if c.Notifier != nil {
		if err := c.Notifier.Notify(ctx, events.TypeJobsChanged); err != nil {
			log.Warn().Err(err).Str("type", events.TypeJobsChanged).Msg("change fan-out failed")
		}
	}
}

func normalizeJob(j *domain.Job) error {
	j.ID = strings.TrimSpace(j.ID)
	j.Address = strings.TrimSpace(j.Address)
	if j.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidJob)
	}
	j.Status = strings.TrimSpace(j.Status)
	if j.Status == "" {
		j.Status = domain.StatusPending
	}
	if j.Date.IsZero() {
		j.Date = time.Now().UTC()
	}
	if j.Hours < 0 {
		return fmt.Errorf("%w: hours must not be negative", ErrInvalidJob)
	}
	j.JobNumber = blankToNil(j.JobNumber)
	j.CreatedBy = blankToNil(j.CreatedBy)
	if j.Photos == nil {
		j.Photos = []string{}
	}
	return nil
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// CreateJob validates and stores a job. Status defaults to "Pending" and the
// date to now.
func (c *Catalog) CreateJob(ctx context.Context, j domain.Job) (*domain.Job, error) {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "CreateJob")
	defer span.End()

	if err := normalizeJob(&j); err != nil {
		return nil, err
	}
	if err := repo.CreateJob(ctx, c.DB, &j); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateJob
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("job.id", j.ID))
	c.changed(ctx)
	return &j, nil
}

// CreateJobIdempotent is CreateJob keyed by (userID, scope, key). A retried
// request returns the job created by the first one and replay=true. An empty
// key disables idempotency.
func (c *Catalog) CreateJobIdempotent(ctx context.Context, userID, scope, key string, j domain.Job) (job *domain.Job, replay bool, err error) {
	if strings.TrimSpace(key) == "" {
		job, err = c.CreateJob(ctx, j)
		return job, false, err
	}

	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "CreateJobIdempotent",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("idempotency.scope", scope),
		),
	)
	defer span.End()

	if prev, err := c.replay(ctx, userID, scope, key); err == nil {
		return prev, true, nil
	}

	if err := normalizeJob(&j); err != nil {
		return nil, false, err
	}
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateJob(ctx, tx, &j); err != nil {
			return err
		}
		_, err := repo.CreateIdempotency(ctx, tx, userID, scope, key, j.ID, 201, c.IdempotencyTTL)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrDuplicate):
		// Lost a race with a concurrent retry, or the job id is taken.
		if prev, rerr := c.replay(ctx, userID, scope, key); rerr == nil {
			return prev, true, nil
		}
		return nil, false, ErrDuplicateJob
	default:
		return nil, false, err
	}

	c.changed(ctx)
	return &j, false, nil
}

func (c *Catalog) replay(ctx context.Context, userID, scope, key string) (*domain.Job, error) {
	rec, err := repo.GetIdempotency(ctx, c.DB, userID, scope, key, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return repo.GetJob(ctx, c.DB, rec.ResourceID)
}

// UpdateJob applies a partial update.
func (c *Catalog) UpdateJob(ctx context.Context, id string, p JobPatch) (*domain.Job, error) {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "UpdateJob",
		trace.WithAttributes(attribute.String("job.id", id)),
	)
	defer span.End()

	j, err := repo.GetJob(ctx, c.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if p.Address != nil {
		j.Address = *p.Address
	}
	if p.JobNumber != nil {
		j.JobNumber = p.JobNumber
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Date != nil {
		j.Date = p.Date.UTC()
	}
	if p.CreatedBy != nil {
		j.CreatedBy = p.CreatedBy
	}
	if p.Notes != nil {
		j.Notes = *p.Notes
	}
	if p.MaterialsUsed != nil {
		j.MaterialsUsed = *p.MaterialsUsed
	}
	if p.Assignments != nil {
		j.Assignments = *p.Assignments
	}
	if p.NIDFootage != nil {
		j.NIDFootage = *p.NIDFootage
	}
	if p.CANFootage != nil {
		j.CANFootage = *p.CANFootage
	}
	if p.Hours != nil {
		j.Hours = *p.Hours
	}
	if p.Photos != nil {
		j.Photos = *p.Photos
	}
	if err := normalizeJob(j); err != nil {
		return nil, err
	}

	if err := repo.SaveJob(ctx, c.DB, j); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	c.changed(ctx)
	return j, nil
}

// DeleteJob soft-deletes a job.
func (c *Catalog) DeleteJob(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "DeleteJob",
		trace.WithAttributes(attribute.String("job.id", id)),
	)
	defer span.End()

	if err := repo.DeleteJob(ctx, c.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	c.changed(ctx)
	return nil
}

// ImportEntries upserts bare shared-index entries and returns how many were
// stored. Every entry needs an id and an address.
func (c *Catalog) ImportEntries(ctx context.Context, entries []search.IndexEntry) (int, error) {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "ImportEntries",
		trace.WithAttributes(attribute.Int("entries", len(entries))),
	)
	defer span.End()

	recs := make([]domain.IndexRecord, 0, len(entries))
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" || strings.TrimSpace(e.Address) == "" {
			return 0, fmt.Errorf("%w: entry %d needs id and address", ErrInvalidJob, i)
		}
		recs = append(recs, e.Record())
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if err := repo.UpsertIndexRecords(ctx, c.DB, recs); err != nil {
		return 0, err
	}
	c.changed(ctx)
	return len(recs), nil
}

// DeleteEntry removes a bare shared-index entry.
func (c *Catalog) DeleteEntry(ctx context.Context, id string) error {
	if err := repo.DeleteIndexRecord(ctx, c.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	c.changed(ctx)
	return nil
}

// Get fetches one job from the database.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Job, error) {
	j, err := repo.GetJob(ctx, c.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return j, err
}

// ListPage returns a page of jobs (newest first) and the total count.
func (c *Catalog) ListPage(ctx context.Context, page, pageSize int) ([]domain.Job, int64, error) {
	ctx, span := otel.Tracer("services/Catalog").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	total, err := repo.CountJobs(ctx, c.DB)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListJobsPage(ctx, c.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats returns the job count and latest update, for ETags.
func (c *Catalog) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.JobsStats(ctx, c.DB)
}
