package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = `id, name, status, created_at, start_time, last_capture_time,
	capture_count, total_bytes, avg_image_size, duration_ms, settings_json`

// CreateSession inserts a new session in the recording state.
func (s *Store) CreateSession(ctx context.Context, name string, settings CaptureSettings) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Name:      DisplayName(name, now),
		Status:    StatusRecording,
		CreatedAt: now,
		StartTime: now,
		Settings:  settings,
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO sessions (
            id, name, status, created_at, start_time,
            capture_count, total_bytes, avg_image_size, duration_ms, settings_json
        ) VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, ?)`,
		session.ID,
		session.Name,
		session.Status,
		formatTime(session.CreatedAt),
		formatTime(session.StartTime),
		string(settingsJSON),
	)
	if err != nil {
		return nil, storageErr("insert session", err)
	}
	return session, nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get session", err)
	}
	return session, nil
}

// UpdateSession replaces the full session record. There is no
// optimistic-concurrency token; last writer wins.
func (s *Store) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	settingsJSON, err := json.Marshal(session.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE sessions SET
            name = ?, status = ?, created_at = ?, start_time = ?, last_capture_time = ?,
            capture_count = ?, total_bytes = ?, avg_image_size = ?, duration_ms = ?, settings_json = ?
        WHERE id = ?`,
		session.Name,
		session.Status,
		formatTime(session.CreatedAt),
		formatTime(session.StartTime),
		nullableTime(session.LastCaptureTime),
		session.CaptureCount,
		session.TotalBytes,
		session.AvgImageSize,
		session.Duration.Milliseconds(),
		string(settingsJSON),
		session.ID,
	)
	if err != nil {
		return storageErr("update session", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("update session", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, session.ID)
	}
	return nil
}

// UpdateSessionStatus persists a status transition for one session.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status SessionStatus) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return storageErr("update session status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("update session status", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, storageErr("scan session", scanErr)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list sessions", err)
	}
	return sessions, nil
}

// ListSessionsByStatus returns sessions matching any of the given statuses,
// newest first.
func (s *Store) ListSessionsByStatus(ctx context.Context, statuses ...SessionStatus) ([]*Session, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[SessionStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}
	filtered := sessions[:0]
	for _, session := range sessions {
		if _, ok := wanted[session.Status]; ok {
			filtered = append(filtered, session)
		}
	}
	return filtered, nil
}

// DeleteSession removes a session, all its captures, and its publish-state
// record as one atomic unit. Child rows are deleted explicitly inside the
// transaction rather than left to foreign-key cascades, so no orphan rows can
// remain regardless of which pooled connection runs the delete.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txCtx := ensureContext(ctx)
		if _, execErr := tx.ExecContext(txCtx, `DELETE FROM captures WHERE session_id = ?`, id); execErr != nil {
			return execErr
		}
		if _, execErr := tx.ExecContext(txCtx, `DELETE FROM publish_state WHERE session_id = ?`, id); execErr != nil {
			return execErr
		}
		res, execErr := tx.ExecContext(txCtx, `DELETE FROM sessions WHERE id = ?`, id)
		if execErr != nil {
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			return fmt.Errorf("%w: session %s", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storageErr("delete session", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session      Session
		createdAt    string
		startTime    string
		lastCapture  sql.NullString
		durationMS   int64
		settingsJSON string
	)
	err := row.Scan(
		&session.ID,
		&session.Name,
		&session.Status,
		&createdAt,
		&startTime,
		&lastCapture,
		&session.CaptureCount,
		&session.TotalBytes,
		&session.AvgImageSize,
		&durationMS,
		&settingsJSON,
	)
	if err != nil {
		return nil, err
	}

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if session.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if session.LastCaptureTime, err = scanNullableTime(lastCapture); err != nil {
		return nil, fmt.Errorf("parse last_capture_time: %w", err)
	}
	session.Duration = time.Duration(durationMS) * time.Millisecond
	if settingsJSON != "" {
		if err := json.Unmarshal([]byte(settingsJSON), &session.Settings); err != nil {
			return nil, fmt.Errorf("parse settings_json: %w", err)
		}
	}
	return &session, nil
}
