package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roadlog/internal/logging"
	"roadlog/internal/remote"
	"roadlog/internal/store"
)

const (
	uploadMaxAttempts = 5
	rateLimitCooldown = 60 * time.Second
	backoffInitial    = 2 * time.Second
	backoffMax        = 30 * time.Second
)

// uploadResult reports one item's outcome.
type uploadResult struct {
	URL     string
	Skipped bool
}

// uploadWorker performs one item's idempotent upload: existence probe,
// conditional write, and a bounded retry policy on top.
type uploadWorker struct {
	remote RemoteClient
	waiter ConnectivityWaiter
	logger *slog.Logger

	// sleep is a test seam; defaults to a context-aware time.After wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func newUploadWorker(client RemoteClient, waiter ConnectivityWaiter, logger *slog.Logger) *uploadWorker {
	if waiter == nil {
		waiter = alwaysOnline{}
	}
	return &uploadWorker{
		remote: client,
		waiter: waiter,
		logger: logging.WithComponent(logger, "upload"),
		sleep:  sleepContext,
	}
}

// UploadItem pushes one capture image to its deterministic remote path.
// A path that already has content is treated as delivered (Skipped=true), so
// retried or duplicated drains never re-send or double-bill quota.
func (w *uploadWorker) UploadItem(ctx context.Context, capture *store.Capture) (uploadResult, error) {
	if capture == nil || len(capture.Image) == 0 {
		return uploadResult{}, fmt.Errorf("%w: capture has no image payload", ErrPermanentItem)
	}
	path := remote.ImagePath(capture.SessionID, capture.SequenceNum)
	message := fmt.Sprintf("Add capture %06d for session %s", capture.SequenceNum, capture.SessionID)
	return w.uploadIdempotent(ctx, path, message, capture.Image)
}

// UploadDocument writes a session document (CSV, metadata, index) with the
// same idempotency and retry policy as item uploads.
func (w *uploadWorker) UploadDocument(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	return w.overwriteConditional(ctx, path, message, data)
}

// uploadIdempotent probes for existing content first and only writes when the
// path is empty.
func (w *uploadWorker) uploadIdempotent(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	var lastErr error
	backoff := backoffInitial

	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err := w.waiter.WaitOnline(ctx); err != nil {
			return uploadResult{}, err
		}

		result, err := w.attemptOnce(ctx, path, message, data)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return uploadResult{}, ctx.Err()
		}
		if attempt == uploadMaxAttempts {
			break
		}

		wait := backoff
		if errors.Is(err, remote.ErrRateLimited) {
			// Fixed cooldown; does not consume exponential growth.
			wait = rateLimitCooldown
			var rle *remote.RateLimitError
			if errors.As(err, &rle) && rle.RetryAfter > 0 && rle.RetryAfter < 2*rateLimitCooldown {
				wait = rle.RetryAfter
			}
		} else {
			if next := backoff * 2; next <= backoffMax {
				backoff = next
			}
		}

		w.logger.Warn("upload attempt failed, retrying",
			logging.String(logging.FieldRemotePath, path),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
		if err := w.sleep(ctx, wait); err != nil {
			return uploadResult{}, err
		}
	}
	return uploadResult{}, lastErr
}

func (w *uploadWorker) attemptOnce(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	existing, err := w.remote.GetContent(ctx, path)
	switch {
	case err == nil:
		return uploadResult{URL: existing.URL, Skipped: true}, nil
	case errors.Is(err, remote.ErrNotFound):
		// Path is empty; write it.
	default:
		return uploadResult{}, err
	}

	info, err := w.remote.PutContent(ctx, path, message, data, "")
	if err == nil {
		return uploadResult{URL: info.URL}, nil
	}
	if !errors.Is(err, remote.ErrConflict) {
		return uploadResult{}, err
	}
	return w.retryWithRefreshedSHA(ctx, path, message, data)
}

// overwriteConditional writes even when content already exists, keying the
// write on the current remote identity.
func (w *uploadWorker) overwriteConditional(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	var lastErr error
	backoff := backoffInitial

	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err := w.waiter.WaitOnline(ctx); err != nil {
			return uploadResult{}, err
		}

		result, err := w.overwriteOnce(ctx, path, message, data)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return uploadResult{}, ctx.Err()
		}
		if attempt == uploadMaxAttempts {
			break
		}

		wait := backoff
		if errors.Is(err, remote.ErrRateLimited) {
			wait = rateLimitCooldown
		} else {
			if next := backoff * 2; next <= backoffMax {
				backoff = next
			}
		}
		if err := w.sleep(ctx, wait); err != nil {
			return uploadResult{}, err
		}
	}
	return uploadResult{}, lastErr
}

func (w *uploadWorker) overwriteOnce(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	sha := ""
	existing, err := w.remote.GetContent(ctx, path)
	switch {
	case err == nil:
		sha = existing.SHA
	case errors.Is(err, remote.ErrNotFound):
	default:
		return uploadResult{}, err
	}

	info, err := w.remote.PutContent(ctx, path, message, data, sha)
	if err == nil {
		return uploadResult{URL: info.URL}, nil
	}
	if !errors.Is(err, remote.ErrConflict) {
		return uploadResult{}, err
	}
	return w.retryWithRefreshedSHA(ctx, path, message, data)
}

// retryWithRefreshedSHA re-probes the current content identity after a
// conflict and retries the write exactly once with it.
func (w *uploadWorker) retryWithRefreshedSHA(ctx context.Context, path, message string, data []byte) (uploadResult, error) {
	current, err := w.remote.GetContent(ctx, path)
	if err != nil {
		return uploadResult{}, err
	}
	info, err := w.remote.PutContent(ctx, path, message, data, current.SHA)
	if err != nil {
		return uploadResult{}, err
	}
	return uploadResult{URL: info.URL}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
