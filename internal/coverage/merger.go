package coverage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"roadlog/internal/logging"
	"roadlog/internal/remote"
	"roadlog/internal/store"
)

// minRoutePoints is the smallest usable route; sessions with fewer
// GPS-bearing captures are skipped entirely.
const minRoutePoints = 2

// ContentStore is the slice of the remote client the merger needs.
type ContentStore interface {
	GetContent(ctx context.Context, path string) (*remote.ContentInfo, error)
	PutContent(ctx context.Context, path, message string, data []byte, sha string) (*remote.ContentInfo, error)
}

// Entry is one published session in the coverage index.
type Entry struct {
	SessionID   string       `json:"sessionId"`
	Collector   string       `json:"collector"`
	ImageCount  int64        `json:"imageCount"`
	PublishedAt time.Time    `json:"publishedAt"`
	DistanceKm  float64      `json:"distanceKm"`
	Route       [][2]float64 `json:"route"`
}

// Stats summarizes the whole index.
type Stats struct {
	SessionCount    int     `json:"sessionCount"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	Contributors    int     `json:"contributors"`
}

// Index is the shared coverage-index document.
type Index struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Stats     Stats     `json:"stats"`
	Sessions  []Entry   `json:"sessions"`
}

// Merger folds finished sessions into the shared index.
type Merger struct {
	remote    ContentStore
	store     *store.Store
	collector string
	logger    *slog.Logger
	now       func() time.Time
}

// NewMerger constructs a coverage index merger. The collector name is
// recorded on new entries and counted in the contributor statistics.
func NewMerger(content ContentStore, st *store.Store, collector string, logger *slog.Logger) *Merger {
	return &Merger{
		remote:    content,
		store:     st,
		collector: collector,
		logger:    logging.WithComponent(logger, "coverage"),
		now:       time.Now,
	}
}

// Merge replaces the session's entry in the remote index and recomputes the
// summary statistics. A fetch failure is treated as an empty index, never as
// fatal. The upload is conditional on the index's last known content
// identity.
func (m *Merger) Merge(ctx context.Context, sessionID string) error {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	captures, err := m.store.GetSessionCaptures(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load captures: %w", err)
	}

	route := routePoints(captures)
	if len(route) < minRoutePoints {
		m.logger.Info("too few GPS points for coverage entry, skipping merge",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Int("points", len(route)),
		)
		return nil
	}

	index, sha := m.fetchIndex(ctx)

	// Replacing any prior entry keeps re-merges after a retried finishing
	// phase from duplicating the session.
	kept := index.Sessions[:0]
	for _, entry := range index.Sessions {
		if entry.SessionID != sessionID {
			kept = append(kept, entry)
		}
	}
	index.Sessions = kept

	simplified := simplifyRoute(route, simplifyEpsilonKm, maxRoutePoints)
	index.Sessions = append(index.Sessions, Entry{
		SessionID:   sessionID,
		Collector:   m.collector,
		ImageCount:  session.CaptureCount,
		PublishedAt: m.now().UTC(),
		DistanceKm:  routeDistanceKm(route),
		Route:       simplified,
	})

	index.Stats = computeStats(index.Sessions)
	index.UpdatedAt = m.now().UTC()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal coverage index: %w", err)
	}
	data = append(data, '\n')

	message := fmt.Sprintf("Merge session %s into coverage index", sessionID)
	if _, err := m.remote.PutContent(ctx, remote.CoverageIndexPath, message, data, sha); err != nil {
		return fmt.Errorf("upload coverage index: %w", err)
	}

	m.logger.Info("coverage index merged",
		logging.String(logging.FieldSessionID, sessionID),
		logging.Int("sessions", index.Stats.SessionCount),
		logging.String(logging.FieldEventType, "coverage_merged"),
	)
	return nil
}

// fetchIndex loads and parses the remote index. Any failure yields an empty
// index with no content identity.
func (m *Merger) fetchIndex(ctx context.Context) (Index, string) {
	info, err := m.remote.GetContent(ctx, remote.CoverageIndexPath)
	if err != nil {
		return Index{}, ""
	}
	var index Index
	if err := json.Unmarshal(info.Content, &index); err != nil {
		m.logger.Warn("coverage index unparsable, rebuilding from empty",
			logging.Error(err),
		)
		return Index{}, info.SHA
	}
	return index, info.SHA
}

func routePoints(captures []*store.Capture) [][2]float64 {
	points := make([][2]float64, 0, len(captures))
	for _, capture := range captures {
		if capture.GPS == nil {
			continue
		}
		points = append(points, [2]float64{capture.GPS.Lat, capture.GPS.Lng})
	}
	return points
}

func computeStats(entries []Entry) Stats {
	contributors := make(map[string]struct{})
	stats := Stats{SessionCount: len(entries)}
	for _, entry := range entries {
		stats.TotalDistanceKm += entry.DistanceKm
		if entry.Collector != "" {
			contributors[entry.Collector] = struct{}{}
		}
	}
	stats.Contributors = len(contributors)
	return stats
}
