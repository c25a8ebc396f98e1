package store_test

import (
	"context"
	"testing"
	"time"

	"roadlog/internal/store"
	"roadlog/internal/testsupport"
)

func TestSaveCaptureUpdatesAggregates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session := testsupport.NewSession(t, st, "aggregates")

	first := testsupport.SaveCapture(t, st, session.ID, 1)
	second := testsupport.SaveCapture(t, st, session.ID, 2)
	if first.ID == 0 || second.ID == 0 {
		t.Fatal("expected capture IDs to be assigned")
	}

	fetched, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.CaptureCount != 2 {
		t.Fatalf("expected capture count 2, got %d", fetched.CaptureCount)
	}
	wantBytes := first.ImageSize + second.ImageSize
	if fetched.TotalBytes != wantBytes {
		t.Fatalf("expected total bytes %d, got %d", wantBytes, fetched.TotalBytes)
	}
	if fetched.AvgImageSize != wantBytes/2 {
		t.Fatalf("expected avg image size %d, got %d", wantBytes/2, fetched.AvgImageSize)
	}
	if fetched.LastCaptureTime == nil {
		t.Fatal("expected last capture time to be recorded")
	}
	if !fetched.LastCaptureTime.Equal(second.Timestamp) {
		t.Fatalf("expected last capture time %s, got %s", second.Timestamp, fetched.LastCaptureTime)
	}
	if fetched.Duration < 0 {
		t.Fatalf("expected non-negative duration, got %s", fetched.Duration)
	}
}

func TestSaveCaptureRejectsDuplicateSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	session := testsupport.NewSession(t, st, "dupes")
	testsupport.SaveCapture(t, st, session.ID, 1)

	dupe := &store.Capture{
		SessionID:   session.ID,
		SequenceNum: 1,
		Timestamp:   time.Now().UTC(),
		Image:       []byte("other-bytes"),
	}
	if err := st.SaveCapture(context.Background(), dupe); err == nil {
		t.Fatal("expected duplicate (session, sequence) insert to fail")
	}

	fetched, err := st.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.CaptureCount != 1 {
		t.Fatalf("failed insert must not bump aggregates, count is %d", fetched.CaptureCount)
	}
}

func TestSaveCaptureValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := st.SaveCapture(ctx, &store.Capture{SessionID: "s", SequenceNum: 0, Timestamp: time.Now()}); err == nil {
		t.Fatal("expected sequence 0 to be rejected")
	}
	if err := st.SaveCapture(ctx, &store.Capture{SequenceNum: 1, Timestamp: time.Now()}); err == nil {
		t.Fatal("expected missing session id to be rejected")
	}
}

func TestGetUnpublishedCapturesOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session := testsupport.NewSession(t, st, "ordering")
	// Insert out of order; reads must come back sequence-ascending.
	for _, seq := range []int64{3, 1, 2} {
		testsupport.SaveCapture(t, st, session.ID, seq)
	}

	unpublished, err := st.GetUnpublishedCaptures(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetUnpublishedCaptures failed: %v", err)
	}
	if len(unpublished) != 3 {
		t.Fatalf("expected 3 unpublished captures, got %d", len(unpublished))
	}
	for i, capture := range unpublished {
		if capture.SequenceNum != int64(i+1) {
			t.Fatalf("expected sequence %d at position %d, got %d", i+1, i, capture.SequenceNum)
		}
	}
}

func TestMarkCapturePublished(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session := testsupport.NewSession(t, st, "publish flags")
	first := testsupport.SaveCapture(t, st, session.ID, 1)
	testsupport.SaveCapture(t, st, session.ID, 2)

	url := "https://example.com/sessions/x/images/000001.jpg"
	if err := st.MarkCapturePublished(ctx, first.ID, url); err != nil {
		t.Fatalf("MarkCapturePublished failed: %v", err)
	}

	unpublished, err := st.GetUnpublishedCaptures(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetUnpublishedCaptures failed: %v", err)
	}
	if len(unpublished) != 1 || unpublished[0].SequenceNum != 2 {
		t.Fatalf("expected only sequence 2 unpublished, got %d captures", len(unpublished))
	}

	all, err := st.GetSessionCaptures(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionCaptures failed: %v", err)
	}
	if !all[0].Published || all[0].PublishedURL != url {
		t.Fatalf("expected first capture published with URL, got %#v", all[0])
	}

	if err := st.MarkCapturePublished(ctx, 9999, url); err == nil {
		t.Fatal("expected unknown capture id to fail")
	}
}

func TestCaptureGPSAndAccelRoundtrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session := testsupport.NewSession(t, st, "sensor roundtrip")

	bare := &store.Capture{
		SessionID:   session.ID,
		SequenceNum: 1,
		Timestamp:   time.Now().UTC(),
		Image:       []byte("img"),
	}
	if err := st.SaveCapture(ctx, bare); err != nil {
		t.Fatalf("SaveCapture failed: %v", err)
	}
	stale := &store.Capture{
		SessionID:   session.ID,
		SequenceNum: 2,
		Timestamp:   time.Now().UTC(),
		GPS:         &store.GPSFix{Lat: 51.5, Lng: -0.12, Accuracy: 30, Stale: true},
		Image:       []byte("img2"),
	}
	if err := st.SaveCapture(ctx, stale); err != nil {
		t.Fatalf("SaveCapture failed: %v", err)
	}

	captures, err := st.GetSessionCaptures(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionCaptures failed: %v", err)
	}
	if captures[0].GPS != nil || captures[0].Accel != nil {
		t.Fatalf("expected nil sensors for bare capture, got %#v", captures[0])
	}
	if captures[1].GPS == nil || !captures[1].GPS.Stale {
		t.Fatalf("expected stale GPS fix to survive roundtrip, got %#v", captures[1].GPS)
	}
}
