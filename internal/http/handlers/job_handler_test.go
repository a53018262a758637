package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/http/middleware"
)

func TestCreateJob_DefaultsAndLocation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/jobs", map[string]any{
		"address":    "  22 Birch Rd ",
		"job_number": "",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	j := decode[domain.Job](t, w)
	if j.ID == "" || j.Address != "22 Birch Rd" || j.Status != domain.StatusPending {
		t.Fatalf("unexpected job: %+v", j)
	}
	if j.JobNumber != nil {
		t.Fatalf("blank job number should be stored as nil, got %q", *j.JobNumber)
	}
	if j.Date.IsZero() {
		t.Fatalf("date should default to now")
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/jobs/"+j.ID {
		t.Fatalf("Location=%q", loc)
	}
	if f.catalog.Corpus().Len() != 1 {
		t.Fatalf("create should reach the search corpus")
	}
}

func TestCreateJob_Validation(t *testing.T) {
	f := newFixture(t)

	expectError(t, f.do(http.MethodPost, "/api/v1/jobs", "{", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"status": "Done"}, nil),
		http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "   "}, nil),
		http.StatusBadRequest, ErrCodeInvalidJob)
	expectError(t, f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "1 Elm", "hours": -1}, nil),
		http.StatusBadRequest, ErrCodeInvalidJob)

	body := map[string]any{"id": "fixed-1", "address": "1 Elm"}
	if w := f.do(http.MethodPost, "/api/v1/jobs", body, nil); w.Code != http.StatusCreated {
		t.Fatalf("first create status=%d", w.Code)
	}
	expectError(t, f.do(http.MethodPost, "/api/v1/jobs", body, nil), http.StatusConflict, ErrCodeConflict)
}

func TestCreateJob_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "create-1", middleware.HeaderUserID: "u-ana"}

	w1 := f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "3 Pine Ct"}, hdr)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first status=%d body=%s", w1.Code, w1.Body.String())
	}
	first := decode[domain.Job](t, w1)
	if w1.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("first request must not be marked replayed")
	}

	w2 := f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "3 Pine Ct"}, hdr)
	if w2.Code != http.StatusOK {
		t.Fatalf("replay status=%d body=%s", w2.Code, w2.Body.String())
	}
	if w2.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay header missing")
	}
	if got := decode[domain.Job](t, w2); got.ID != first.ID {
		t.Fatalf("replay returned %s; want %s", got.ID, first.ID)
	}

	// Same key from another user is a different operation.
	other := map[string]string{middleware.HeaderIdempotencyKey: "create-1", middleware.HeaderUserID: "u-bob"}
	if w := f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "3 Pine Ct"}, other); w.Code != http.StatusCreated {
		t.Fatalf("other user status=%d", w.Code)
	}
	if n := f.catalog.Corpus().Len(); n != 2 {
		t.Fatalf("corpus size=%d; want 2", n)
	}

	bad := map[string]string{middleware.HeaderIdempotencyKey: "has spaces"}
	if w := f.do(http.MethodPost, "/api/v1/jobs", map[string]any{"address": "x"}, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key status=%d", w.Code)
	}
}

func TestListJobs_PaginationAndETag(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(http.MethodGet, "/api/v1/jobs?page=1&page_size=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	resp := decode[ListJobsResponse](t, w)
	if len(resp.Jobs) != 2 || resp.Jobs[0].ID != "j3" {
		t.Fatalf("expected newest first, got %+v", resp.Jobs)
	}
	p := resp.Pagination
	if p.Total != 3 || p.TotalPages != 2 || !p.HasNext || p.PageSize != 2 {
		t.Fatalf("pagination: %+v", p)
	}

	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"jobs:3:`) {
		t.Fatalf("ETag=%q", etag)
	}
	w = f.do(http.MethodGet, "/api/v1/jobs?page=1&page_size=2", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
	// A different page is a different representation.
	w = f.do(http.MethodGet, "/api/v1/jobs?page=2&page_size=2", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("page 2 status=%d", w.Code)
	}
	if resp := decode[ListJobsResponse](t, w); len(resp.Jobs) != 1 || resp.Pagination.HasNext {
		t.Fatalf("page 2: %+v", resp)
	}

	// Clamping and empty pages.
	w = f.do(http.MethodGet, "/api/v1/jobs?page=9&page_size=1000", nil, nil)
	resp = decode[ListJobsResponse](t, w)
	if resp.Jobs == nil || len(resp.Jobs) != 0 || resp.Pagination.PageSize != maxJobsPageSize {
		t.Fatalf("out of range page: %+v", resp)
	}
}

func TestGetUpdateDeleteJob(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	w := f.do(http.MethodGet, "/api/v1/jobs/j1", nil, nil)
	if w.Code != http.StatusOK || decode[domain.Job](t, w).Address != "10 Oak Ave" {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
	expectError(t, f.do(http.MethodGet, "/api/v1/jobs/missing", nil, nil), http.StatusNotFound, ErrCodeNotFound)

	w = f.do(http.MethodPatch, "/api/v1/jobs/j1", map[string]any{"status": "Done", "job_number": "77"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", w.Code, w.Body.String())
	}
	j := decode[domain.Job](t, w)
	if j.Status != "Done" || j.JobNumber == nil || *j.JobNumber != "77" || j.Address != "10 Oak Ave" {
		t.Fatalf("patched: %+v", j)
	}
	expectError(t, f.do(http.MethodPatch, "/api/v1/jobs/j1", map[string]any{"address": ""}, nil),
		http.StatusBadRequest, ErrCodeInvalidJob)
	expectError(t, f.do(http.MethodPatch, "/api/v1/jobs/missing", map[string]any{"status": "x"}, nil),
		http.StatusNotFound, ErrCodeNotFound)

	if w := f.do(http.MethodDelete, "/api/v1/jobs/j1", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	expectError(t, f.do(http.MethodDelete, "/api/v1/jobs/j1", nil, nil), http.StatusNotFound, ErrCodeNotFound)
	if _, ok := f.catalog.Corpus().FindJob("j1"); ok {
		t.Fatalf("deleted job still in corpus")
	}
}

func TestImportEntries(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/jobs/index", map[string]any{
		"entries": []map[string]any{
			{"id": "e1", "address": "9 Cedar Ln", "status": "Pending", "date": "2025-01-02T00:00:00Z"},
			{"id": "e2", "address": "9 Cedar Ln", "job_number": "12"},
		},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := decode[ImportEntriesResponse](t, w); got.Imported != 2 {
		t.Fatalf("imported=%d", got.Imported)
	}
	if _, ok := f.catalog.Corpus().FindEntry("e2"); !ok {
		t.Fatalf("imported entry not in corpus")
	}

	expectError(t, f.do(http.MethodPost, "/api/v1/jobs/index", map[string]any{}, nil),
		http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, f.do(http.MethodPost, "/api/v1/jobs/index", map[string]any{
		"entries": []map[string]any{{"id": "e3"}},
	}, nil), http.StatusBadRequest, ErrCodeInvalidJob)

	// Removing an entry takes it out of search; the job route is unaffected.
	if w := f.do(http.MethodDelete, "/api/v1/jobs/index/e2", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete entry status=%d body=%s", w.Code, w.Body.String())
	}
	if _, ok := f.catalog.Corpus().FindEntry("e2"); ok {
		t.Fatalf("deleted entry still in corpus")
	}
	if _, ok := f.catalog.Corpus().FindEntry("e1"); !ok {
		t.Fatalf("sibling entry removed")
	}
	expectError(t, f.do(http.MethodDelete, "/api/v1/jobs/index/e2", nil, nil), http.StatusNotFound, ErrCodeNotFound)
}
