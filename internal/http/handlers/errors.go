package handlers

// Stable, machine-readable error codes carried in ErrorResponse.Code.
// Clients branch on these; messages are for humans.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeTimeout          = "timeout"
	ErrCodeInternal         = "internal_error"

	// Job catalog and directory.
	ErrCodeInvalidJob   = "invalid_job"
	ErrCodeInvalidUser  = "invalid_user"
	ErrCodeCreateFailed = "create_failed"
	ErrCodeListFailed   = "list_failed"

	// Search sessions.
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeStreamFailed    = "stream_unsupported"
)
