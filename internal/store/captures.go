package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const captureColumns = `id, session_id, sequence_num, timestamp,
	gps_lat, gps_lng, gps_accuracy, gps_stale,
	accel_x, accel_y, accel_z,
	image, image_size, published, published_url`

// SaveCapture inserts a capture and updates the owning session's aggregates
// (capture count, total bytes, average image size, last capture time,
// duration) as one transaction. No caller ever observes the insert without
// the aggregate update or vice versa.
func (s *Store) SaveCapture(ctx context.Context, capture *Capture) error {
	if capture == nil {
		return errors.New("capture is nil")
	}
	if capture.SessionID == "" {
		return errors.New("capture requires a session id")
	}
	if capture.SequenceNum < 1 {
		return errors.New("capture sequence numbers start at 1")
	}
	if capture.ImageSize == 0 {
		capture.ImageSize = int64(len(capture.Image))
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txCtx := ensureContext(ctx)

		var startTime string
		if err := tx.QueryRowContext(txCtx,
			`SELECT start_time FROM sessions WHERE id = ?`, capture.SessionID,
		).Scan(&startTime); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: session %s", ErrNotFound, capture.SessionID)
			}
			return err
		}
		sessionStart, err := parseTime(startTime)
		if err != nil {
			return fmt.Errorf("parse start_time: %w", err)
		}

		var gpsLat, gpsLng, gpsAccuracy, gpsStale any
		if capture.GPS != nil {
			gpsLat = capture.GPS.Lat
			gpsLng = capture.GPS.Lng
			gpsAccuracy = capture.GPS.Accuracy
			gpsStale = capture.GPS.Stale
		}
		var accelX, accelY, accelZ any
		if capture.Accel != nil {
			accelX = capture.Accel.X
			accelY = capture.Accel.Y
			accelZ = capture.Accel.Z
		}

		res, err := tx.ExecContext(txCtx,
			`INSERT INTO captures (
                session_id, sequence_num, timestamp,
                gps_lat, gps_lng, gps_accuracy, gps_stale,
                accel_x, accel_y, accel_z,
                image, image_size, published, published_url
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '')`,
			capture.SessionID,
			capture.SequenceNum,
			formatTime(capture.Timestamp),
			gpsLat, gpsLng, gpsAccuracy, gpsStale,
			accelX, accelY, accelZ,
			capture.Image,
			capture.ImageSize,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		duration := capture.Timestamp.UTC().Sub(sessionStart)
		if duration < 0 {
			duration = 0
		}
		if _, err := tx.ExecContext(txCtx,
			`UPDATE sessions SET
                capture_count = capture_count + 1,
                total_bytes = total_bytes + ?,
                avg_image_size = (total_bytes + ?) / (capture_count + 1),
                last_capture_time = ?,
                duration_ms = ?
            WHERE id = ?`,
			capture.ImageSize,
			capture.ImageSize,
			formatTime(capture.Timestamp),
			duration.Milliseconds(),
			capture.SessionID,
		); err != nil {
			return err
		}

		capture.ID = id
		capture.Published = false
		capture.PublishedURL = ""
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storageErr("save capture", err)
	}
	return nil
}

// GetSessionCaptures returns all captures for a session ordered by sequence
// number ascending.
func (s *Store) GetSessionCaptures(ctx context.Context, sessionID string) ([]*Capture, error) {
	return s.queryCaptures(ctx,
		`SELECT `+captureColumns+` FROM captures WHERE session_id = ? ORDER BY sequence_num ASC`,
		sessionID)
}

// GetUnpublishedCaptures returns the session's captures not yet published,
// ordered by sequence number ascending.
func (s *Store) GetUnpublishedCaptures(ctx context.Context, sessionID string) ([]*Capture, error) {
	return s.queryCaptures(ctx,
		`SELECT `+captureColumns+` FROM captures WHERE session_id = ? AND published = 0 ORDER BY sequence_num ASC`,
		sessionID)
}

// MarkCapturePublished flips the published flag and records the remote URL
// for one capture via read-modify-write.
func (s *Store) MarkCapturePublished(ctx context.Context, id int64, url string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txCtx := ensureContext(ctx)
		var existing int64
		if err := tx.QueryRowContext(txCtx,
			`SELECT id FROM captures WHERE id = ?`, id,
		).Scan(&existing); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: capture %d", ErrNotFound, id)
			}
			return err
		}
		_, err := tx.ExecContext(txCtx,
			`UPDATE captures SET published = 1, published_url = ? WHERE id = ?`, url, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storageErr("mark capture published", err)
	}
	return nil
}

// CaptureCount returns the number of persisted captures for a session.
func (s *Store) CaptureCount(ctx context.Context, sessionID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM captures WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("count captures", err)
	}
	return count, nil
}

func (s *Store) queryCaptures(ctx context.Context, query string, args ...any) ([]*Capture, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query captures", err)
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		capture, scanErr := scanCapture(rows)
		if scanErr != nil {
			return nil, storageErr("scan capture", scanErr)
		}
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query captures", err)
	}
	return captures, nil
}

func scanCapture(row rowScanner) (*Capture, error) {
	var (
		capture   Capture
		timestamp string
		gpsLat    sql.NullFloat64
		gpsLng    sql.NullFloat64
		gpsAcc    sql.NullFloat64
		gpsStale  sql.NullBool
		accelX    sql.NullFloat64
		accelY    sql.NullFloat64
		accelZ    sql.NullFloat64
	)
	err := row.Scan(
		&capture.ID,
		&capture.SessionID,
		&capture.SequenceNum,
		&timestamp,
		&gpsLat, &gpsLng, &gpsAcc, &gpsStale,
		&accelX, &accelY, &accelZ,
		&capture.Image,
		&capture.ImageSize,
		&capture.Published,
		&capture.PublishedURL,
	)
	if err != nil {
		return nil, err
	}

	if capture.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	if gpsLat.Valid && gpsLng.Valid {
		capture.GPS = &GPSFix{
			Lat:      gpsLat.Float64,
			Lng:      gpsLng.Float64,
			Accuracy: gpsAcc.Float64,
			Stale:    gpsStale.Valid && gpsStale.Bool,
		}
	}
	if accelX.Valid && accelY.Valid && accelZ.Valid {
		capture.Accel = &AccelReading{X: accelX.Float64, Y: accelY.Float64, Z: accelZ.Float64}
	}
	return &capture, nil
}
