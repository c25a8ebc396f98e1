package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"roadlog/internal/config"
	"roadlog/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewSession creates a recording session for tests.
func NewSession(t testing.TB, st *store.Store, name string) *store.Session {
	t.Helper()

	session, err := st.CreateSession(context.Background(), name, store.CaptureSettings{
		Collector:        "tester",
		DeviceDescriptor: "test device",
		IntervalSeconds:  2,
		ImageQuality:     85,
	})
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}

// SaveCapture persists a capture with a synthetic image payload and GPS fix.
func SaveCapture(t testing.TB, st *store.Store, sessionID string, seq int64) *store.Capture {
	t.Helper()

	capture := &store.Capture{
		SessionID:   sessionID,
		SequenceNum: seq,
		Timestamp:   time.Now().UTC().Add(time.Duration(seq) * time.Second),
		GPS: &store.GPSFix{
			Lat:      40.7128 + float64(seq)*0.0005,
			Lng:      -74.0060 + float64(seq)*0.0005,
			Accuracy: 5,
		},
		Accel: &store.AccelReading{X: 0.1, Y: 0.2, Z: 9.8},
		Image: []byte(fmt.Sprintf("jpeg-bytes-%06d", seq)),
	}
	if err := st.SaveCapture(context.Background(), capture); err != nil {
		t.Fatalf("store.SaveCapture(seq=%d): %v", seq, err)
	}
	return capture
}
