package remote

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized indicates the token was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the token lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the remote path has no content.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the remote path holds content with a different
	// identity than the write supplied.
	ErrConflict = errors.New("content conflict")
	// ErrRateLimited indicates the API rate limit is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient tags network failures and 5xx responses that are safe to
	// retry.
	ErrTransient = errors.New("transient remote failure")
)

// RateLimitError carries the cooldown hint from a rate-limited response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// TransientError wraps a retryable network or server failure.
type TransientError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	switch {
	case e.Err != nil && e.Status > 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }
