package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"roadlog/internal/config"
	"roadlog/internal/logging"
	"roadlog/internal/notifications"
	"roadlog/internal/store"
)

// minRateLimitRemaining is the quota floor required before a job may start.
const minRateLimitRemaining = 100

// Phase names the coordinator's state machine position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseQueued     Phase = "queued"
	PhaseUploading  Phase = "uploading"
	PhasePaused     Phase = "paused"
	PhaseFinishing  Phase = "finishing"
	PhaseCancelling Phase = "cancelling"
)

// job is the single shared mutable state for one publish run, owned by the
// coordinator and guarded by its mutex.
type job struct {
	sessionID   string
	sessionName string
	queue       []*store.Capture
	total       int
	completed   int
	failed      int
	startedAt   time.Time
	phase       Phase
}

// Coordinator orchestrates one publish job at a time. Two flags guard the
// drain: job != nil (job exists) and drainActive (a drain goroutine is
// running). Resume starts a new drain only when the former is true and the
// latter false, so a pause/resume race can never produce overlapping drains.
type Coordinator struct {
	cfg       *config.Config
	store     *store.Store
	remote    RemoteClient
	worker    *uploadWorker
	notifier  notifications.Service
	merger    IndexMerger
	logger    *slog.Logger
	lock      *flock.Flock
	itemDelay time.Duration

	mu              sync.Mutex
	job             *job
	drainActive     bool
	pauseRequested  bool
	cancelRequested bool
}

// Option configures optional coordinator behavior.
type Option func(*Coordinator)

// WithMerger installs the coverage index merger invoked during finishing.
func WithMerger(merger IndexMerger) Option {
	return func(c *Coordinator) { c.merger = merger }
}

// WithConnectivityWaiter installs the offline-wait strategy for uploads.
func WithConnectivityWaiter(waiter ConnectivityWaiter) Option {
	return func(c *Coordinator) { c.worker.waiter = waiter }
}

// WithItemDelay overrides the fixed delay applied between items.
func WithItemDelay(delay time.Duration) Option {
	return func(c *Coordinator) { c.itemDelay = delay }
}

// WithLockPath overrides the publish lock file location.
func WithLockPath(path string) Option {
	return func(c *Coordinator) { c.lock = flock.New(path) }
}

// NewCoordinator constructs a publish coordinator.
func NewCoordinator(cfg *config.Config, st *store.Store, client RemoteClient, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Coordinator {
	logger = logging.WithComponent(logger, "publish")
	c := &Coordinator{
		cfg:       cfg,
		store:     st,
		remote:    client,
		worker:    newUploadWorker(client, nil, logger),
		notifier:  notifier,
		logger:    logger,
		lock:      flock.New(filepath.Join(cfg.Paths.DataDir, "publish.lock")),
		itemDelay: time.Duration(cfg.Publish.ItemDelayMillis) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates remote access, builds the work queue, persists the initial
// publish-state record, and launches the drain. Fails with
// ErrAlreadyPublishing when a job or an active drain is already running.
func (c *Coordinator) Start(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.job != nil || c.drainActive {
		c.mu.Unlock()
		return ErrAlreadyPublishing
	}
	newJob := &job{
		sessionID: sessionID,
		startedAt: time.Now(),
		phase:     PhaseValidating,
	}
	c.job = newJob
	c.pauseRequested = false
	c.cancelRequested = false
	c.mu.Unlock()

	abort := func() {
		c.mu.Lock()
		c.job = nil
		c.mu.Unlock()
	}

	locked, err := c.lock.TryLock()
	if err != nil {
		abort()
		return fmt.Errorf("acquire publish lock: %w", err)
	}
	if !locked {
		abort()
		return ErrAlreadyPublishing
	}
	abortLocked := func() {
		abort()
		c.releaseLock()
	}

	if err := c.validateRemote(ctx); err != nil {
		abortLocked()
		return err
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		abortLocked()
		return err
	}

	unpublished, err := c.store.GetUnpublishedCaptures(ctx, sessionID)
	if err != nil {
		abortLocked()
		return err
	}
	queue := make([]*store.Capture, 0, len(unpublished))
	for _, capture := range unpublished {
		if len(capture.Image) > 0 {
			queue = append(queue, capture)
		}
	}
	// An empty queue is still work when the session is mid-publish: a prior
	// run uploaded every item but died before the finishing phase completed,
	// and finishing is idempotent. The crash scanner demotes an interrupted
	// publish to paused, so the open publish-state record counts as the
	// resumable signal alongside publishing status.
	finishingOnly := len(queue) == 0
	if finishingOnly {
		prior, stateErr := c.store.GetPublishState(ctx, sessionID)
		if stateErr != nil {
			abortLocked()
			return stateErr
		}
		if session.Status != store.StatusPublishing && (prior == nil || !prior.InProgress) {
			abortLocked()
			return fmt.Errorf("%w: session %s", ErrNoWork, sessionID)
		}
		if prior != nil {
			newJob.completed = prior.Completed
			newJob.failed = prior.Failed
			newJob.total = prior.TotalToUpload
		}
	} else {
		// Durable before the first upload so a crash mid-job leaves enough
		// state to resume without re-uploading completed items.
		state := &store.PublishState{
			SessionID:      sessionID,
			PublishStarted: time.Now().UTC(),
			TotalToUpload:  len(queue),
			InProgress:     true,
		}
		if err := c.store.SavePublishState(ctx, state); err != nil {
			abortLocked()
			return err
		}
		if err := c.store.UpdateSessionStatus(ctx, sessionID, store.StatusPublishing); err != nil {
			abortLocked()
			return err
		}
	}

	c.mu.Lock()
	newJob.sessionName = session.Name
	newJob.queue = queue
	if !finishingOnly {
		newJob.total = len(queue)
	}
	newJob.phase = PhaseQueued
	c.drainActive = true
	c.mu.Unlock()

	if !finishingOnly {
		_ = c.notifier.NotifyPublishStarted(ctx, session.Name, len(queue))
	}
	c.logger.Info("publish started",
		logging.String(logging.FieldSessionID, sessionID),
		logging.Int("queued", len(queue)),
		logging.String(logging.FieldEventType, "publish_started"),
	)

	go c.drain(ctx)
	return nil
}

// validateRemote checks credential validity, write permission, and remaining
// rate-limit quota. Every failed check is reported; any failure aborts the
// job before an upload is issued.
func (c *Coordinator) validateRemote(ctx context.Context) error {
	var reasons []string

	login, err := c.remote.CheckIdentity(ctx)
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("credentials rejected: %v", err))
	}

	repo, err := c.remote.CheckRepoAccess(ctx)
	switch {
	case err != nil:
		reasons = append(reasons, fmt.Sprintf("repository access failed: %v", err))
	case !repo.CanPush:
		reasons = append(reasons, fmt.Sprintf("token for %s lacks push permission on %s", login, repo.FullName))
	}

	limits, err := c.remote.RateLimit(ctx)
	switch {
	case err != nil:
		reasons = append(reasons, fmt.Sprintf("rate limit status unavailable: %v", err))
	case limits.Remaining < minRateLimitRemaining:
		reasons = append(reasons, fmt.Sprintf("rate limit remaining %d below required %d (resets %s)",
			limits.Remaining, minRateLimitRemaining, limits.Reset.Format(time.RFC3339)))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// Pause requests a pause. The flag is observed only between items; an
// in-flight attempt is never interrupted and the queue is preserved.
func (c *Coordinator) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return ErrNoActiveJob
	}
	c.pauseRequested = true
	return nil
}

// Resume clears the pause flag and launches a new drain only when none is
// already active.
func (c *Coordinator) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.job == nil {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	c.pauseRequested = false
	if c.drainActive {
		c.mu.Unlock()
		return nil
	}
	c.drainActive = true
	c.job.phase = PhaseUploading
	c.mu.Unlock()

	go c.drain(ctx)
	return nil
}

const (
	cancelWaitTimeout  = 5 * time.Second
	cancelPollInterval = 50 * time.Millisecond
)

// Cancel clears the job and queue, waits (bounded) for any in-flight drain
// iteration to observe the teardown and exit, then marks the session stopped.
// Session state is never mutated concurrently with a stale loop iteration
// still completing a network call.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.job == nil && !c.drainActive {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	var sessionID string
	if c.job != nil {
		sessionID = c.job.sessionID
		c.job.phase = PhaseCancelling
	}
	c.cancelRequested = true
	c.job = nil
	c.mu.Unlock()

	deadline := time.Now().Add(cancelWaitTimeout)
	for {
		c.mu.Lock()
		active := c.drainActive
		c.mu.Unlock()
		if !active || time.Now().After(deadline) {
			break
		}
		select {
		case <-time.After(cancelPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if sessionID != "" {
		if err := c.store.UpdateSessionStatus(ctx, sessionID, store.StatusStopped); err != nil {
			return fmt.Errorf("mark session stopped: %w", err)
		}
		if state, err := c.store.GetPublishState(ctx, sessionID); err == nil && state != nil {
			state.InProgress = false
			_ = c.store.SavePublishState(ctx, state)
		}
	}

	c.mu.Lock()
	c.cancelRequested = false
	c.mu.Unlock()
	c.releaseLock()

	c.logger.Info("publish cancelled",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldEventType, "publish_cancelled"),
	)
	return nil
}

func (c *Coordinator) releaseLock() {
	if c.lock != nil {
		_ = c.lock.Unlock()
	}
}
