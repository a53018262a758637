// Job catalog HTTP handlers.
//
//   - POST   /jobs          (create, Idempotency-Key aware)
//   - GET    /jobs          (list, paginated, ETag support)
//   - GET    /jobs/{id}
//   - PATCH  /jobs/{id}
//   - DELETE /jobs/{id}
//   - POST   /jobs/index    (bulk import of shared index entries)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/http/middleware"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
	"github.com/tbourn/go-jobsearch-backend/internal/utils"
)

const (
	defaultJobsPageSize = 20
	maxJobsPageSize     = 100
	maxImportEntries    = 1000
)

//
// DTOs
//

// CreateJobRequest is the JSON payload for creating a job.
type CreateJobRequest struct {
	// ID is optional; a UUID is generated when empty.
	ID            string     `json:"id,omitempty"             example:"7c1e8a4e-3a55-4d8e-9d1e-0f4a7e0b2c11"`
	Address       string     `json:"address"                  binding:"required" example:"101 Main St, Springfield"`
	JobNumber     *string    `json:"job_number,omitempty"     example:"4471"`
	Status        string     `json:"status,omitempty"         example:"Pending"`
	Date          *time.Time `json:"date,omitempty"           example:"2024-03-01T00:00:00Z"`
	CreatedBy     *string    `json:"created_by,omitempty"     example:"u-ana"`
	Notes         string     `json:"notes,omitempty"`
	MaterialsUsed string     `json:"materials_used,omitempty"`
	Assignments   string     `json:"assignments,omitempty"`
	NIDFootage    string     `json:"nid_footage,omitempty"`
	CANFootage    string     `json:"can_footage,omitempty"`
	Hours         float64    `json:"hours,omitempty"`
	Photos        []string   `json:"photos,omitempty"`
}

func (r CreateJobRequest) job() domain.Job {
	j := domain.Job{
		ID:            r.ID,
		Address:       r.Address,
		JobNumber:     r.JobNumber,
		Status:        r.Status,
		CreatedBy:     r.CreatedBy,
		Notes:         r.Notes,
		MaterialsUsed: r.MaterialsUsed,
		Assignments:   r.Assignments,
		NIDFootage:    r.NIDFootage,
		CANFootage:    r.CANFootage,
		Hours:         r.Hours,
		Photos:        r.Photos,
	}
	if r.Date != nil {
		j.Date = r.Date.UTC()
	}
	return j
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	Pagination Pagination   `json:"pagination"`
}

// ImportEntriesRequest carries bare shared-index entries.
type ImportEntriesRequest struct {
	Entries []search.IndexEntry `json:"entries" binding:"required"`
}

// ImportEntriesResponse reports how many entries were stored.
type ImportEntriesResponse struct {
	Imported int `json:"imported" example:"12"`
}

// jobError maps catalog errors onto the error envelope.
func jobError(c *gin.Context, err error, code string) {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
	case errors.Is(err, services.ErrInvalidJob):
		fail(c, http.StatusBadRequest, ErrCodeInvalidJob, err.Error())
	case errors.Is(err, services.ErrDuplicateJob):
		fail(c, http.StatusConflict, ErrCodeConflict, "job already exists")
	default:
		fail(c, http.StatusInternalServerError, code, err.Error())
	}
}

//
// Handlers
//

// CreateJob godoc
// @ID          createJob
// @Summary     Create a job
// @Description Stores a job. With an Idempotency-Key, a retry returns the job created by the first request with 200 and Idempotency-Replayed: true.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(u-ana)
// @Param       Idempotency-Key  header  string  false "Idempotency key"        example(3d6f0a52-8a7c-4b6a-9f0e-1c2d3e4f5a6b)
// @Param       body             body    handlers.CreateJobRequest  true  "Job"
//
// @Success     201  {object}  domain.Job
// @Success     200  {object}  domain.Job             "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Job id taken"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /jobs [post]
func (h *Handlers) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	j, replay, err := h.jobs.CreateJobIdempotent(c.Request.Context(),
		middleware.UserID(c), middleware.IdempotencyScope(c), key, req.job())
	if err != nil {
		jobError(c, err, ErrCodeCreateFailed)
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(c.FullPath(), "/"), j.ID))
	if replay {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, j)
		return
	}
	ok(c, http.StatusCreated, j)
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List jobs (paginated)
// @Description Returns a page of jobs, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Jobs
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"jobs:12:1709251200:1:20\")
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListJobsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"), defaultJobsPageSize, maxJobsPageSize)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.jobs.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"jobs:%d:%d:%d:%d"`, count, ts, p.Number, p.Size)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.jobs.ListPage(ctx, p.Number, p.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Job{}
	}
	totalPages := utils.TotalPages(total, p.Size)
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs: items,
		Pagination: Pagination{
			Page:       p.Number,
			PageSize:   p.Size,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Number < totalPages,
		},
	})
}

// GetJob godoc
// @ID          getJob
// @Summary     Get a job
// @Tags        Jobs
// @Produce     json
// @Param       id   path      string  true  "Job ID"
// @Success     200  {object}  domain.Job
// @Failure     404  {object}  handlers.ErrorResponse "Job not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		jobError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, j)
}

// UpdateJob godoc
// @ID          updateJob
// @Summary     Update a job
// @Description Applies a partial update. Omitted fields are unchanged; an empty job_number or created_by clears it.
// @Tags        Jobs
// @Accept      json
// @Produce     json
// @Param       id    path  string             true  "Job ID"
// @Param       body  body  services.JobPatch  true  "Fields to change"
// @Success     200  {object}  domain.Job
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Job not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id} [patch]
func (h *Handlers) UpdateJob(c *gin.Context) {
	var patch services.JobPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	j, err := h.jobs.UpdateJob(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		jobError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, j)
}

// DeleteJob godoc
// @ID          deleteJob
// @Summary     Delete a job
// @Tags        Jobs
// @Param       id   path  string  true  "Job ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Job not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs/{id} [delete]
func (h *Handlers) DeleteJob(c *gin.Context) {
	if err := h.jobs.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		jobError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ImportEntries godoc
// @ID          importEntries
// @Summary     Import shared index entries
// @Description Upserts lightweight job entries whose full records live elsewhere. They become searchable immediately.
// @Tags        Jobs
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ImportEntriesRequest  true  "Entries"
// @Success     200  {object}  handlers.ImportEntriesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /jobs/index [post]
func (h *Handlers) ImportEntries(c *gin.Context) {
	var req ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Entries) > maxImportEntries {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("at most %d entries per request", maxImportEntries))
		return
	}
	n, err := h.jobs.ImportEntries(c.Request.Context(), req.Entries)
	if err != nil {
		jobError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ImportEntriesResponse{Imported: n})
}

// DeleteEntry godoc
// @ID          deleteEntry
// @Summary     Remove a shared index entry
// @Tags        Jobs
// @Param       id   path  string  true  "Entry ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /jobs/index/{id} [delete]
func (h *Handlers) DeleteEntry(c *gin.Context) {
	if err := h.jobs.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		jobError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
