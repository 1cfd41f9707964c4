// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the entity is not in a state that allows the change
	// (e.g. approving an activity that was already rejected, a full activity).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)
