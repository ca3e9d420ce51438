package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the parent of every "entity absent" error.
	ErrNotFound = errors.New("not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrAttemptNotFound is returned when an attempt id does not exist.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrPollNotFound is returned when a poll id does not exist.
	ErrPollNotFound = fmt.Errorf("poll %w", ErrNotFound)
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrForbidden is returned when the acting user does not own the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrLimitExceeded is returned when a student has used every allowed attempt.
	ErrLimitExceeded = errors.New("attempt limit exceeded")
	// ErrAlreadySubmitted is returned when a closed attempt is submitted again.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrInvalidVoteTarget covers votes on absent or closed polls and unknown option keys.
	ErrInvalidVoteTarget = errors.New("invalid vote target")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Invalid wraps a validation message so it matches ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
