package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roadlog/internal/logging"
	"roadlog/internal/notifications"
	"roadlog/internal/remote"
	"roadlog/internal/store"
)

// drain processes the queue strictly sequentially: one item in flight at a
// time. Per-item failures are counted and the loop advances; no item blocks
// the job indefinitely.
func (c *Coordinator) drain(ctx context.Context) {
	for {
		c.mu.Lock()
		current := c.job
		if current == nil || c.cancelRequested {
			c.drainActive = false
			c.mu.Unlock()
			return
		}
		if c.pauseRequested {
			current.phase = PhasePaused
			c.drainActive = false
			c.mu.Unlock()
			c.logger.Info("publish paused",
				logging.String(logging.FieldSessionID, current.sessionID),
				logging.Int("remaining", len(current.queue)),
				logging.String(logging.FieldEventType, "publish_paused"),
			)
			return
		}
		if len(current.queue) == 0 {
			current.phase = PhaseFinishing
			c.mu.Unlock()
			c.finish(ctx, current)
			return
		}
		item := current.queue[0]
		current.phase = PhaseUploading
		c.mu.Unlock()

		result, err := c.worker.UploadItem(ctx, item)

		c.mu.Lock()
		if c.job != current || c.cancelRequested {
			// Cancelled while the attempt was in flight. The attempt has
			// settled; persist nothing further for this item.
			c.drainActive = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.mu.Lock()
				c.drainActive = false
				c.mu.Unlock()
				return
			}
			c.recordItemFailure(ctx, current, item, err)
		} else {
			c.recordItemSuccess(ctx, current, item, result)
		}

		c.mu.Lock()
		current.queue = current.queue[1:]
		c.mu.Unlock()

		c.persistProgress(ctx, current)
		c.notifyProgress(ctx, current)

		// Small fixed delay between items to avoid hammering the rate limit.
		if c.itemDelay > 0 {
			if err := sleepContext(ctx, c.itemDelay); err != nil {
				c.mu.Lock()
				c.drainActive = false
				c.mu.Unlock()
				return
			}
		}
	}
}

func (c *Coordinator) recordItemSuccess(ctx context.Context, current *job, item *store.Capture, result uploadResult) {
	if err := c.store.MarkCapturePublished(ctx, item.ID, result.URL); err != nil {
		current.failed++
		c.logger.Error("capture uploaded but could not be marked published",
			logging.String(logging.FieldSessionID, item.SessionID),
			logging.Int64(logging.FieldSequence, item.SequenceNum),
			logging.Error(err),
		)
		_ = c.notifier.NotifyError(ctx, err, fmt.Sprintf("capture %d", item.SequenceNum))
		return
	}
	item.Published = true
	item.PublishedURL = result.URL
	current.completed++
	if result.Skipped {
		c.logger.Debug("capture already present remotely, skipped",
			logging.String(logging.FieldSessionID, item.SessionID),
			logging.Int64(logging.FieldSequence, item.SequenceNum),
		)
	}
}

func (c *Coordinator) recordItemFailure(ctx context.Context, current *job, item *store.Capture, err error) {
	current.failed++
	c.logger.Warn("capture upload failed permanently for this job",
		logging.String(logging.FieldSessionID, item.SessionID),
		logging.Int64(logging.FieldSequence, item.SequenceNum),
		logging.Error(err),
		logging.String(logging.FieldEventType, "item_failed"),
	)
	_ = c.notifier.NotifyError(ctx, err, fmt.Sprintf("capture %d", item.SequenceNum))
}

func (c *Coordinator) persistProgress(ctx context.Context, current *job) {
	state := &store.PublishState{
		SessionID:      current.sessionID,
		PublishStarted: current.startedAt.UTC(),
		TotalToUpload:  current.total,
		Completed:      current.completed,
		Failed:         current.failed,
		InProgress:     true,
	}
	if err := c.store.SavePublishState(ctx, state); err != nil {
		c.logger.Error("persist publish progress failed",
			logging.String(logging.FieldSessionID, current.sessionID),
			logging.Error(err),
		)
	}
}

func (c *Coordinator) notifyProgress(ctx context.Context, current *job) {
	snapshot := c.Status()
	if !snapshot.Active {
		return
	}
	_ = c.notifier.NotifyProgress(ctx, current.sessionName, notifications.Progress{
		Completed:        snapshot.Completed,
		Failed:           snapshot.Failed,
		Total:            snapshot.Total,
		Percent:          snapshot.Percent,
		EstimatedSeconds: snapshot.EstimatedSeconds,
		Message:          fmt.Sprintf("uploaded %d of %d", snapshot.Completed, snapshot.Total),
	})
}

// finish regenerates the session's full CSV and metadata documents, uploads
// them idempotently, merges the coverage index, and records the final session
// status. Errors abort only this phase: the job is cleared but the session
// stays in publishing status so a future retry can resume; every step here is
// idempotent.
func (c *Coordinator) finish(ctx context.Context, current *job) {
	session, err := c.store.GetSession(ctx, current.sessionID)
	if err != nil {
		c.failFinishing(ctx, current, err)
		return
	}
	captures, err := c.store.GetSessionCaptures(ctx, current.sessionID)
	if err != nil {
		c.failFinishing(ctx, current, err)
		return
	}

	csvData, err := buildCSV(captures)
	if err != nil {
		c.failFinishing(ctx, current, err)
		return
	}
	csvMessage := fmt.Sprintf("Update data.csv for session %s", session.ID)
	if _, err := c.worker.UploadDocument(ctx, remote.DataCSVPath(session.ID), csvMessage, csvData); err != nil {
		c.failFinishing(ctx, current, err)
		return
	}

	// Counts come from the store, not the run's counters, so a finishing-only
	// retry after a crash still reports the whole session accurately.
	published, failedItems := 0, 0
	for _, capture := range captures {
		switch {
		case capture.Published:
			published++
		case len(capture.Image) > 0:
			failedItems++
		}
	}

	metadata, err := buildMetadata(session, published, failedItems, c.cfg.Capture.Collector)
	if err != nil {
		c.failFinishing(ctx, current, err)
		return
	}
	metaMessage := fmt.Sprintf("Update metadata for session %s", session.ID)
	if _, err := c.worker.UploadDocument(ctx, remote.MetadataPath(session.ID), metaMessage, metadata); err != nil {
		c.failFinishing(ctx, current, err)
		return
	}

	if c.merger != nil {
		if err := c.merger.Merge(ctx, session.ID); err != nil {
			// Publish success never depends on the index merge.
			c.logger.Warn("coverage index merge failed",
				logging.String(logging.FieldSessionID, session.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "coverage_merge_failed"),
			)
		}
	}

	finalStatus := store.StatusPublished
	if failedItems > 0 {
		finalStatus = store.StatusPartiallyPublished
	}
	if err := c.store.UpdateSessionStatus(ctx, session.ID, finalStatus); err != nil {
		c.failFinishing(ctx, current, err)
		return
	}

	now := time.Now().UTC()
	state := &store.PublishState{
		SessionID:      session.ID,
		PublishStarted: current.startedAt.UTC(),
		TotalToUpload:  current.total,
		Completed:      current.completed,
		Failed:         current.failed,
		InProgress:     false,
		CompletedAt:    &now,
	}
	if err := c.store.SavePublishState(ctx, state); err != nil {
		c.logger.Error("persist final publish state failed",
			logging.String(logging.FieldSessionID, session.ID),
			logging.Error(err),
		)
	}

	c.mu.Lock()
	c.job = nil
	c.drainActive = false
	c.mu.Unlock()
	c.releaseLock()

	_ = c.notifier.NotifyPublishCompleted(ctx, current.sessionName, current.completed, current.failed, current.total)
	c.logger.Info("publish finished",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String("final_status", string(finalStatus)),
		logging.Int("completed", current.completed),
		logging.Int("failed", current.failed),
		logging.Int("total", current.total),
		logging.String(logging.FieldEventType, "publish_finished"),
	)
}

func (c *Coordinator) failFinishing(ctx context.Context, current *job, err error) {
	c.mu.Lock()
	c.job = nil
	c.drainActive = false
	c.mu.Unlock()
	c.releaseLock()

	c.logger.Error("finishing phase failed; session left in publishing for retry",
		logging.String(logging.FieldSessionID, current.sessionID),
		logging.Error(err),
		logging.String(logging.FieldEventType, "publish_finish_failed"),
	)
	_ = c.notifier.NotifyError(ctx, err, "finishing session "+current.sessionID)
}
