// Package domain defines shared domain types and the error taxonomy used
// across services and handlers.
package domain

import "errors"

// Sentinel errors classifying every failure an engine or service can return.
// Handlers map these to HTTP statuses with errors.Is; callers branch on them
// for expected business outcomes.
var (
	// ErrInvalidInput indicates malformed or out-of-range caller data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIneligibleDonor indicates the donor is inside the 90-day eligibility
	// window. This is an expected business outcome, not a system fault.
	ErrIneligibleDonor = errors.New("donor not eligible")

	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a role or ownership guard failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a concurrent-update retry was exhausted or a
	// uniqueness rule was violated.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateResponse indicates a donor already responded to a request.
	ErrDuplicateResponse = errors.New("donor already responded")

	// ErrStorageFailure indicates the underlying data store is unavailable.
	ErrStorageFailure = errors.New("storage failure")
)
