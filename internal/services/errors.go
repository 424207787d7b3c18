// Package services holds the enrichment pipeline's business logic: the
// dispatcher that starts enrichment, the receiver and read path for job
// results, and the profile stager and associator.
//
// Service methods return the sentinel errors below, wrapped with %w and some
// context. Handlers map them to HTTP statuses with errors.Is.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means the caller sent something malformed. Nothing was
	// written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the key is absent or expired. For results this is the
	// normal "still pending" answer, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrUpstream means the enrichment producer could not be started.
	ErrUpstream = errors.New("upstream failure")

	// ErrStorage means the key-value store failed.
	ErrStorage = errors.New("storage failure")

	// ErrCorruptResult is a stored result that no longer decodes to a valid
	// payload. It is a storage failure and is never reported as not found.
	ErrCorruptResult = fmt.Errorf("%w: corrupt result", ErrStorage)

	// ErrConflict means an idempotency key was reused for a different
	// request. Nothing was dispatched.
	ErrConflict = errors.New("idempotency key reused")

	// ErrUnauthorized means the caller's secret or token was missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
)
