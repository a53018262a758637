// Search session HTTP handlers.
//
// A session holds one query and republishes its view whenever the query, the
// job catalog or the crew directory changes. Clients either poll the snapshot
// or follow the SSE stream at /search/sessions/{id}/events.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
	"github.com/tbourn/go-jobsearch-backend/internal/http/middleware"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
	"github.com/tbourn/go-jobsearch-backend/internal/sysutil"
)

// maxSettleWait bounds how long a wait=true request blocks on a rebuild.
const maxSettleWait = 5 * time.Second

//
// DTOs
//

// SessionQueryRequest sets a session query. With Wait the response carries
// the snapshot built for this query rather than the previous one.
type SessionQueryRequest struct {
	Query *string `json:"query" example:"main st pending"`
	Wait  bool    `json:"wait"  example:"true"`
}

// SessionResponse is a published snapshot of a session.
type SessionResponse struct {
	SessionID string               `json:"session_id" example:"0b8e3f0c-56a4-4d5c-8f2b-96d1e9a3f7aa"`
	Seq       uint64               `json:"seq"        example:"3"`
	State     search.ViewState     `json:"state"`
	Count     int                  `json:"count"      example:"4"`
	Filters   []search.QuickFilter `json:"filters"`
	BuiltAt   *time.Time           `json:"built_at,omitempty"`
}

// ResolveResponse is the target of a result id: a flat result or an
// aggregate, tagged by Kind.
type ResolveResponse struct {
	Kind      string            `json:"kind" example:"aggregate"`
	Result    *search.Result    `json:"result,omitempty"`
	Aggregate *search.Aggregate `json:"aggregate,omitempty"`
}

// SessionJobResponse is a job opened from search. Source is "full" when the
// catalog holds the record and "partial" when only an index entry exists.
type SessionJobResponse struct {
	Source search.JobSource `json:"source" example:"full"`
	Job    domain.Job       `json:"job"`
}

func newSessionResponse(id string, snap search.Snapshot) SessionResponse {
	resp := SessionResponse{
		SessionID: id,
		Seq:       snap.Seq,
		State:     snap.State,
		Count:     snap.Count,
		Filters:   snap.Filters,
	}
	if resp.Filters == nil {
		resp.Filters = []search.QuickFilter{}
	}
	if !snap.BuiltAt.IsZero() {
		t := snap.BuiltAt
		resp.BuiltAt = &t
	}
	return resp
}

func sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, search.ErrClosed):
		fail(c, http.StatusNotFound, ErrCodeSessionNotFound, "search session not found")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "search did not settle in time")
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// bindQuery reads an optional SessionQueryRequest; an empty body is allowed.
func bindQuery(c *gin.Context) (SessionQueryRequest, error) {
	var req SessionQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	if sysutil.IsTruthy(c.Query("wait")) {
		req.Wait = true
	}
	return req, nil
}

func settle(c *gin.Context, sess *search.Session) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), maxSettleWait)
	defer cancel()
	return sess.Settle(ctx)
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSearchSession
// @Summary     Open a search session
// @Description Opens a live search session with an optional initial query. With wait the first snapshot is built before responding.
// @Tags        Search
// @Accept      json
// @Produce     json
// @Param       wait  query  bool                          false "Wait for the first rebuild"
// @Param       body  body   handlers.SessionQueryRequest  false "Initial query"
// @Success     201  {object}  handlers.SessionResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     504  {object}  handlers.ErrorResponse "Rebuild timed out"
// @Router      /search/sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	req, err := bindQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	var q string
	if req.Query != nil {
		q = *req.Query
	}

	id, sess := h.sessions.Create(c.Request.Context(), q)
	if req.Wait {
		if err := settle(c, sess); err != nil {
			sessionError(c, err)
			return
		}
	}
	middleware.LoggerFrom(c).Debug().Str("session_id", id).Msg("search session opened")
	c.Header("Location", fmt.Sprintf("%s/%s", c.FullPath(), id))
	ok(c, http.StatusCreated, newSessionResponse(id, sess.Snapshot()))
}

// GetSession godoc
// @ID          getSearchSession
// @Summary     Get the latest snapshot
// @Tags        Search
// @Produce     json
// @Param       id    path   string  true  "Session ID"
// @Param       wait  query  bool    false "Wait for a pending rebuild"
// @Success     200  {object}  handlers.SessionResponse
// @Failure     404  {object}  handlers.ErrorResponse "Session not found"
// @Router      /search/sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		sessionError(c, err)
		return
	}
	if sysutil.IsTruthy(c.Query("wait")) {
		if err := settle(c, sess); err != nil {
			sessionError(c, err)
			return
		}
	}
	ok(c, http.StatusOK, newSessionResponse(id, sess.Snapshot()))
}

// SetSessionQuery godoc
// @ID          setSearchQuery
// @Summary     Change the query
// @Description Replaces the session query. Rebuilds are debounced; with wait the response carries the snapshot for this query.
// @Tags        Search
// @Accept      json
// @Produce     json
// @Param       id    path  string                        true  "Session ID"
// @Param       body  body  handlers.SessionQueryRequest  true  "Query"
// @Success     200  {object}  handlers.SessionResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Session not found"
// @Failure     504  {object}  handlers.ErrorResponse "Rebuild timed out"
// @Router      /search/sessions/{id}/query [put]
func (h *Handlers) SetSessionQuery(c *gin.Context) {
	req, err := bindQuery(c)
	if err != nil || req.Query == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query is required")
		return
	}
	id := c.Param("id")

	ctx := c.Request.Context()
	if req.Wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxSettleWait)
		defer cancel()
	}
	snap, err := h.sessions.SetQuery(ctx, id, *req.Query, req.Wait)
	if err != nil {
		sessionError(c, err)
		return
	}
	ok(c, http.StatusOK, newSessionResponse(id, snap))
}

// ResolveResult godoc
// @ID          resolveSearchResult
// @Summary     Resolve a result id
// @Description Looks a result or aggregate id up in the latest snapshot. Ids from an older snapshot that are gone return 404.
// @Tags        Search
// @Produce     json
// @Param       id   path  string  true  "Session ID"
// @Param       rid  path  string  true  "Result or aggregate ID"
// @Success     200  {object}  handlers.ResolveResponse
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /search/sessions/{id}/results/{rid} [get]
func (h *Handlers) ResolveResult(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		sessionError(c, err)
		return
	}
	r, found := sess.Resolve(c.Param("rid"))
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "result not found")
		return
	}
	resp := ResolveResponse{Result: r.Result, Aggregate: r.Aggregate}
	if r.Aggregate != nil {
		resp.Kind = "aggregate"
	} else {
		resp.Kind = "result"
	}
	ok(c, http.StatusOK, resp)
}

// OpenJob godoc
// @ID          openSearchJob
// @Summary     Open a job from search
// @Description Returns the full job when the catalog holds it, otherwise a partial job built from the shared index entry.
// @Tags        Search
// @Produce     json
// @Param       id     path  string  true  "Session ID"
// @Param       jobID  path  string  true  "Job ID"
// @Success     200  {object}  handlers.SessionJobResponse
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Router      /search/sessions/{id}/jobs/{jobID} [get]
func (h *Handlers) OpenJob(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		sessionError(c, err)
		return
	}
	j, src, found := sess.Job(c.Param("jobID"))
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		return
	}
	ok(c, http.StatusOK, SessionJobResponse{Source: src, Job: j})
}

// CloseSession godoc
// @ID          closeSearchSession
// @Summary     Close a search session
// @Tags        Search
// @Param       id   path  string  true  "Session ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Router      /search/sessions/{id} [delete]
func (h *Handlers) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		sessionError(c, err)
		return
	}
	noContent(c)
}

// StreamSession godoc
// @ID          streamSearchSession
// @Summary     Follow a session
// @Description Server-sent events. The current snapshot is sent first, then every newer one as "snapshot" events, with periodic "ping" events. The stream ends when the session closes.
// @Tags        Search
// @Produce     text/event-stream
// @Param       id   path  string  true  "Session ID"
// @Success     200  {string}  string "event stream"
// @Failure     404  {object}  handlers.ErrorResponse "Session not found"
// @Router      /search/sessions/{id}/events [get]
func (h *Handlers) StreamSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		sessionError(c, err)
		return
	}

	w := c.Writer
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		fail(c, http.StatusInternalServerError, ErrCodeStreamFailed, "streaming unsupported")
		return
	}

	// Subscribe before reading the first snapshot so no publish is missed.
	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	// Streams outlive the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	var last uint64
	sent := false
	push := func() error {
		snap := sess.Snapshot()
		if sent && snap.Seq <= last {
			return nil
		}
		ev := events.New(events.TypeSnapshot, newSessionResponse(id, snap))
		if _, err := fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Seq, ev.Marshal()); err != nil {
			return err
		}
		flusher.Flush()
		last, sent = snap.Seq, true
		return nil
	}
	if err := push(); err != nil {
		return
	}

	every := h.PingEvery
	if every <= 0 {
		every = 15 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			fmt.Fprint(w, "event: close\ndata: {}\n\n")
			flusher.Flush()
			return
		case _, open := <-ch:
			if !open {
				return
			}
			if err := push(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, "event: ping\ndata: %s\n\n", events.New(events.TypePing, nil).Marshal()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
