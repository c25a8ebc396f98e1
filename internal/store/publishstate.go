package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SavePublishState upserts the publish-state record for a session.
func (s *Store) SavePublishState(ctx context.Context, state *PublishState) error {
	if state == nil {
		return errors.New("publish state is nil")
	}
	if state.SessionID == "" {
		return errors.New("publish state requires a session id")
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO publish_state (
            session_id, publish_started, total_to_upload, completed, failed, in_progress, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            publish_started = excluded.publish_started,
            total_to_upload = excluded.total_to_upload,
            completed = excluded.completed,
            failed = excluded.failed,
            in_progress = excluded.in_progress,
            completed_at = excluded.completed_at`,
		state.SessionID,
		formatTime(state.PublishStarted),
		state.TotalToUpload,
		state.Completed,
		state.Failed,
		state.InProgress,
		nullableTime(state.CompletedAt),
	)
	if err != nil {
		return storageErr("save publish state", err)
	}
	return nil
}

// GetPublishState loads the publish-state record for a session. Returns
// (nil, nil) when no record exists.
func (s *Store) GetPublishState(ctx context.Context, sessionID string) (*PublishState, error) {
	ctx = ensureContext(ctx)
	var (
		state       PublishState
		started     string
		completedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, publish_started, total_to_upload, completed, failed, in_progress, completed_at
         FROM publish_state WHERE session_id = ?`, sessionID,
	).Scan(
		&state.SessionID,
		&started,
		&state.TotalToUpload,
		&state.Completed,
		&state.Failed,
		&state.InProgress,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get publish state", err)
	}

	if state.PublishStarted, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("parse publish_started: %w", err)
	}
	if state.CompletedAt, err = scanNullableTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	return &state, nil
}
