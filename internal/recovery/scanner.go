package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roadlog/internal/logging"
	"roadlog/internal/store"
)

// SequenceGap is a break in the expected monotonic per-session capture
// numbering, indicating possible data loss during a crash.
type SequenceGap struct {
	After   int64 `json:"after"`
	Before  int64 `json:"before"`
	Missing int64 `json:"missing"`
}

// Info summarizes what a crashed session may have lost.
type Info struct {
	PotentialMissedFrames int64
	LastCaptureTime       *time.Time
	Gaps                  []SequenceGap
}

// RecoveredSession pairs a demoted session with its recovery annotations.
type RecoveredSession struct {
	Session *store.Session
	Info    Info
}

// Scanner finds and demotes sessions interrupted by a crash.
type Scanner struct {
	store  *store.Store
	logger *slog.Logger
}

// NewScanner constructs a recovery scanner.
func NewScanner(st *store.Store, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:  st,
		logger: logging.WithComponent(logger, "recovery"),
	}
}

// Scan demotes every session left in recording or publishing status to
// paused, persists the change, and returns the recovered sessions with their
// sequence-gap annotations. Resume/discard decisions belong to the caller.
// Store errors propagate unmodified; no silent partial state is produced.
func (s *Scanner) Scan(ctx context.Context) ([]RecoveredSession, error) {
	sessions, err := s.store.ListSessionsByStatus(ctx, store.StatusRecording, store.StatusPublishing)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	recovered := make([]RecoveredSession, 0, len(sessions))
	for _, session := range sessions {
		captures, err := s.store.GetSessionCaptures(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("load captures for %s: %w", session.ID, err)
		}

		info := Info{
			Gaps:            Gaps(captures),
			LastCaptureTime: session.LastCaptureTime,
		}
		for _, gap := range info.Gaps {
			info.PotentialMissedFrames += gap.Missing
		}

		previous := session.Status
		session.Status = store.StatusPaused
		if err := s.store.UpdateSessionStatus(ctx, session.ID, store.StatusPaused); err != nil {
			return nil, fmt.Errorf("demote session %s: %w", session.ID, err)
		}

		s.logger.Info("recovered interrupted session",
			logging.String(logging.FieldSessionID, session.ID),
			logging.String("previous_status", string(previous)),
			logging.Int64("captures", session.CaptureCount),
			logging.Int64("potential_missed_frames", info.PotentialMissedFrames),
			logging.Int("gaps", len(info.Gaps)),
			logging.String(logging.FieldEventType, "session_recovered"),
		)

		recovered = append(recovered, RecoveredSession{Session: session, Info: info})
	}
	return recovered, nil
}

// Gaps computes sequence gaps over captures ordered by sequence number. Each
// mismatch from expected = previous+1 records the bounding sequence numbers
// and how many frames are missing between them.
func Gaps(captures []*store.Capture) []SequenceGap {
	var gaps []SequenceGap
	for i := 1; i < len(captures); i++ {
		prev := captures[i-1].SequenceNum
		cur := captures[i].SequenceNum
		if cur != prev+1 {
			gaps = append(gaps, SequenceGap{
				After:   prev,
				Before:  cur,
				Missing: cur - prev - 1,
			})
		}
	}
	return gaps
}
