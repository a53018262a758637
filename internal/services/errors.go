// Package services defines the business logic around the job catalog, the
// crew directory and search sessions. This file centralizes service-level
// error values so callers can match them with errors.Is.
//
// Translation into HTTP status codes is performed by the handler layer.
package services

import "errors"

var (
	// ErrJobNotFound indicates the job does not exist (or was deleted).
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidJob is returned when a job fails validation, e.g. an empty
	// address.
	ErrInvalidJob = errors.New("invalid job")

	// ErrDuplicateJob is returned when a job id is already taken.
	ErrDuplicateJob = errors.New("job already exists")

	// ErrUserNotFound indicates the directory has no such user.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUser is returned when a user has no id or no name.
	ErrInvalidUser = errors.New("invalid user")

	// ErrSessionNotFound indicates the search session does not exist or has
	// expired.
	ErrSessionNotFound = errors.New("search session not found")
)
