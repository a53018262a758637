package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-jobsearch-backend/internal/sysutil"
)

// HeaderUserID carries the caller's identity until real auth sits in front
// of the API.
const HeaderUserID = "X-User-ID"

// anonymousUser is used when no identity is available.
const anonymousUser = "demo-user"

// UserID resolves the caller: a "userID" context value set by upstream auth,
// then the X-User-ID header, then a fixed demo identity.
func UserID(c *gin.Context) string {
	var fromCtx, fromHeader string
	if v, ok := c.Get("userID"); ok {
		fromCtx, _ = v.(string)
	}
	if c.Request != nil {
		fromHeader = c.GetHeader(HeaderUserID)
	}
	return strings.TrimSpace(sysutil.FirstNonEmpty(fromCtx, fromHeader, anonymousUser))
}
