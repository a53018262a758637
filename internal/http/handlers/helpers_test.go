package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/http/middleware"
	"github.com/tbourn/go-jobsearch-backend/internal/repo"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
)

// ---------- test DB + services ----------

func newHandlersDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db       *gorm.DB
	catalog  *services.Catalog
	dir      *services.Directory
	sessions *services.SearchService
	h        *Handlers
	r        *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlersDB(t)
	cat := services.NewCatalog(db)
	dir := services.NewDirectory(db)
	svc := services.NewSearchService(cat, dir, time.Hour, 10, search.WithDebounce(time.Millisecond))
	t.Cleanup(svc.CloseAll)

	h := New(cat, dir, svc)
	h.PingEvery = 20 * time.Millisecond

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			return err == nil, nil
		}))

	api := r.Group("/api/v1")
	api.POST("/jobs", h.CreateJob)
	api.GET("/jobs", h.ListJobs)
	api.POST("/jobs/index", h.ImportEntries)
	api.DELETE("/jobs/index/:id", h.DeleteEntry)
	api.GET("/jobs/:id", h.GetJob)
	api.PATCH("/jobs/:id", h.UpdateJob)
	api.DELETE("/jobs/:id", h.DeleteJob)

	api.GET("/users", h.ListUsers)
	api.PUT("/users/:id", h.UpsertUser)
	api.DELETE("/users/:id", h.DeleteUser)

	api.POST("/search/sessions", h.CreateSession)
	api.GET("/search/sessions/:id", h.GetSession)
	api.PUT("/search/sessions/:id/query", h.SetSessionQuery)
	api.GET("/search/sessions/:id/results/:rid", h.ResolveResult)
	api.GET("/search/sessions/:id/jobs/:jobID", h.OpenJob)
	api.GET("/search/sessions/:id/events", h.StreamSession)
	api.DELETE("/search/sessions/:id", h.CloseSession)

	return &fixture{db: db, catalog: cat, dir: dir, sessions: svc, h: h, r: r}
}

// seed stores two jobs at the same address by different crew members and
// one unrelated job.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "u1", FirstName: "Alice", LastName: "Nguyen"},
		{ID: "u2", FirstName: "Bob", LastName: "Ortiz"},
	} {
		if _, err := f.dir.Upsert(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	u1, u2 := "u1", "u2"
	for _, j := range []domain.Job{
		{ID: "j1", Address: "10 Oak Ave", Status: "Pending", Date: d, CreatedBy: &u1},
		{ID: "j2", Address: "10 oak ave", Status: "Done", Date: d.AddDate(0, 0, 1), CreatedBy: &u2},
		{ID: "j3", Address: "5 Elm St", Status: "Pending", Date: d.AddDate(0, 0, 2)},
	} {
		if _, err := f.catalog.CreateJob(ctx, j); err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body=%s", v, err, w.Body.String())
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d; body=%s", w.Code, status, w.Body.String())
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code=%q want %q", er.Code, code)
	}
	if er.RequestID == "" {
		t.Fatalf("error envelope missing request_id")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
