// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Error families. Specific errors below wrap exactly one of them,
// so callers can match either the family or the precise case with errors.Is.
var (
	// ErrValidation indicates rejected input or a violated membership rule.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConsistency indicates a multi-record write could not keep its linkage intact.
	ErrConsistency = errors.New("consistency")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation reported by storage.
	ErrAlreadyExists = errors.New("already exists")
)

// Validation cases.
var (
	ErrEmailTaken        = fmt.Errorf("%w: email taken", ErrValidation)
	ErrUsernameTaken     = fmt.Errorf("%w: username taken", ErrValidation)
	ErrPasswordTooShort  = fmt.Errorf("%w: password too short", ErrValidation)
	ErrAlreadySubscribed = fmt.Errorf("%w: already subscribed", ErrValidation)
	ErrNotSubscribed     = fmt.Errorf("%w: not subscribed", ErrValidation)
)

// Missing entities.
var (
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrTopicNotFound = fmt.Errorf("topic %w", ErrNotFound)
	ErrPostNotFound  = fmt.Errorf("post %w", ErrNotFound)
)

// Authentication cases.
var (
	ErrBadCredentials = fmt.Errorf("%w: bad credentials", ErrUnauthorized)
	ErrTokenInvalid   = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

// Validation wraps a payload rule failure into the validation family.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
