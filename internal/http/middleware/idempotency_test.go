package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestContextAccessors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/jobs", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key must read as absent")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("non-bool replay flag must read as false")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
}

func TestUserID_Precedence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if got := UserID(c); got != "demo-user" {
		t.Fatalf("fallback = %q", got)
	}
	c.Request.Header.Set(HeaderUserID, " crew-7 ")
	if got := UserID(c); got != "crew-7" {
		t.Fatalf("header = %q", got)
	}
	c.Set("userID", "u1")
	if got := UserID(c); got != "u1" {
		t.Fatalf("context = %q", got)
	}
	c.Set("userID", 42)
	if got := UserID(c); got != "crew-7" {
		t.Fatalf("wrong-type context value should fall through, got %q", got)
	}
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	called := false
	r.Use(IdempotencyValidator(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		called = true
		return false, nil
	}))
	r.POST("/jobs", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should be absent")
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	if w.Code != http.StatusNoContent || called {
		t.Fatalf("code=%d called=%v", w.Code, called)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc123"},
		{"default pattern", IdempotencyOptions{}, "has space"},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(IdempotencyValidator(tc.opts, nil))
		r.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.Header.Set(HeaderIdempotencyKey, tc.key)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "bad_idempotency_key" {
			t.Fatalf("%s: unexpected body %s", tc.name, w.Body.String())
		}
	}
}

func TestIdempotencyValidator_LookupMissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(found bool, lookupErr error) (replay, bypass bool, scope, user string) {
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set("userID", "u9"); c.Next() })
		r.Use(IdempotencyValidator(IdempotencyOptions{}, func(_ context.Context, uid, sc, key string, now time.Time) (bool, error) {
			if key != "k-9" || now.IsZero() {
				t.Fatalf("unexpected lookup args key=%q now=%v", key, now)
			}
			scope, user = sc, uid
			return found, lookupErr
		}))
		r.POST("/api/v1/jobs", func(c *gin.Context) {
			replay, bypass = IsReplay(c), IsRateBypass(c)
			if IdempotencyScope(c) != scope {
				t.Fatalf("handler scope %q != lookup scope %q", IdempotencyScope(c), scope)
			}
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-9")
		r.ServeHTTP(httptest.NewRecorder(), req)
		return
	}

	replay, bypass, scope, user := run(false, nil)
	if replay || bypass {
		t.Fatalf("miss should not flag replay/bypass")
	}
	if scope != "POST /api/v1/jobs" || user != "u9" {
		t.Fatalf("scope=%q user=%q", scope, user)
	}

	if replay, bypass, _, _ = run(true, nil); !replay || !bypass {
		t.Fatalf("hit should flag replay and bypass")
	}
	if replay, _, _, _ = run(false, errors.New("db down")); replay {
		t.Fatalf("lookup error must not flag replay")
	}
}
