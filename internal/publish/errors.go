package publish

import (
	"errors"
	"strings"
)

var (
	// ErrAlreadyPublishing indicates a job or an active drain is already
	// running in this process (or another process holds the publish lock).
	ErrAlreadyPublishing = errors.New("publish already in progress")

	// ErrNoWork indicates the session has no unpublished captures with an
	// image payload.
	ErrNoWork = errors.New("no unpublished captures to upload")

	// ErrNoActiveJob indicates pause/resume/cancel was called without a job.
	ErrNoActiveJob = errors.New("no active publish job")

	// ErrPermanentItem tags captures that can never upload successfully
	// (corrupt or missing payload). Never retried; counted as failed.
	ErrPermanentItem = errors.New("permanent item failure")
)

// ValidationError aggregates every reason pre-upload validation failed.
// It is raised before any upload begins.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "publish validation failed"
	}
	return "publish validation failed: " + strings.Join(e.Reasons, "; ")
}
