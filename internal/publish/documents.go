package publish

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"roadlog/internal/store"
)

// csvHeader is the fixed data.csv schema. Missing values serialize as empty
// fields.
var csvHeader = []string{
	"sequence", "timestamp",
	"gps_lat", "gps_lng", "gps_accuracy", "gps_stale",
	"image_url",
	"accel_x", "accel_y", "accel_z",
}

// buildCSV renders the session's full capture list, not just the current
// batch, so re-running the finishing phase always regenerates the complete
// document.
func buildCSV(captures []*store.Capture) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, capture := range captures {
		record := make([]string, 0, len(csvHeader))
		record = append(record,
			strconv.FormatInt(capture.SequenceNum, 10),
			capture.Timestamp.UTC().Format(time.RFC3339),
		)
		if capture.GPS != nil {
			record = append(record,
				formatFloat(capture.GPS.Lat),
				formatFloat(capture.GPS.Lng),
				formatFloat(capture.GPS.Accuracy),
				strconv.FormatBool(capture.GPS.Stale),
			)
		} else {
			record = append(record, "", "", "", "")
		}
		record = append(record, capture.PublishedURL)
		if capture.Accel != nil {
			record = append(record,
				formatFloat(capture.Accel.X),
				formatFloat(capture.Accel.Y),
				formatFloat(capture.Accel.Z),
			)
		} else {
			record = append(record, "", "", "")
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// sessionMetadata is the published metadata.json document.
type sessionMetadata struct {
	SessionID         string                `json:"sessionId"`
	Name              string                `json:"name"`
	Device            string                `json:"device"`
	StartTime         time.Time             `json:"startTime"`
	EndTime           *time.Time            `json:"endTime,omitempty"`
	TotalCaptures     int64                 `json:"totalCaptures"`
	PublishedCaptures int                   `json:"publishedCaptures"`
	FailedCaptures    int                   `json:"failedCaptures"`
	Settings          store.CaptureSettings `json:"settings"`
	Contributor       string                `json:"contributor"`
}

func buildMetadata(session *store.Session, completed, failed int, contributor string) ([]byte, error) {
	if contributor == "" {
		contributor = session.Settings.Collector
	}
	meta := sessionMetadata{
		SessionID:         session.ID,
		Name:              session.Name,
		Device:            session.Settings.DeviceDescriptor,
		StartTime:         session.StartTime.UTC(),
		EndTime:           session.LastCaptureTime,
		TotalCaptures:     session.CaptureCount,
		PublishedCaptures: completed,
		FailedCaptures:    failed,
		Settings:          session.Settings,
		Contributor:       contributor,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return append(data, '\n'), nil
}
