// Package errkind declares the error categories shared by every pinstore
// component. Package-level sentinels wrap one of these so callers (the
// gateway and the HTTP layer) can classify failures with errors.Is.
package errkind

import "errors"

var (
	// ErrNotFound marks an unknown bucket, object or pin target.
	ErrNotFound = errors.New("not found")
	// ErrLimitExceeded marks a violated bucket limit.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrUnauthorized marks a mutation attempted by a sender lacking rights on the target.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput marks malformed messages, algorithms or cursors.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict marks a state that already exists.
	ErrConflict = errors.New("conflict")
)
