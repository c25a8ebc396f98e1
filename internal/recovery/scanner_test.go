package recovery_test

import (
	"context"
	"testing"

	"roadlog/internal/logging"
	"roadlog/internal/recovery"
	"roadlog/internal/store"
	"roadlog/internal/testsupport"
)

func TestScanDemotesInterruptedSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	interrupted := testsupport.NewSession(t, st, "interrupted recording")
	for _, seq := range []int64{1, 2, 4, 5} {
		testsupport.SaveCapture(t, st, interrupted.ID, seq)
	}

	publishing := testsupport.NewSession(t, st, "interrupted publish")
	testsupport.SaveCapture(t, st, publishing.ID, 1)
	if err := st.UpdateSessionStatus(ctx, publishing.ID, store.StatusPublishing); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}

	finished := testsupport.NewSession(t, st, "already published")
	if err := st.UpdateSessionStatus(ctx, finished.ID, store.StatusPublished); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}

	scanner := recovery.NewScanner(st, logging.NewNop())
	recovered, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(recovered) != 2 {
		t.Fatalf("expected 2 recovered sessions, got %d", len(recovered))
	}

	for _, item := range recovered {
		fetched, err := st.GetSession(ctx, item.Session.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if fetched.Status != store.StatusPaused {
			t.Fatalf("expected session %s demoted to paused, got %s", item.Session.ID, fetched.Status)
		}
	}

	untouched, err := st.GetSession(ctx, finished.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if untouched.Status != store.StatusPublished {
		t.Fatalf("published session must not be demoted, got %s", untouched.Status)
	}
}

func TestScanAnnotatesGaps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session := testsupport.NewSession(t, st, "gappy")
	for _, seq := range []int64{1, 2, 4, 5, 9} {
		testsupport.SaveCapture(t, st, session.ID, seq)
	}

	scanner := recovery.NewScanner(st, logging.NewNop())
	recovered, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(recovered) != 1 {
		t.Fatalf("expected 1 recovered session, got %d", len(recovered))
	}

	info := recovered[0].Info
	if len(info.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %#v", len(info.Gaps), info.Gaps)
	}
	if info.Gaps[0] != (recovery.SequenceGap{After: 2, Before: 4, Missing: 1}) {
		t.Fatalf("unexpected first gap: %#v", info.Gaps[0])
	}
	if info.Gaps[1] != (recovery.SequenceGap{After: 5, Before: 9, Missing: 3}) {
		t.Fatalf("unexpected second gap: %#v", info.Gaps[1])
	}
	if info.PotentialMissedFrames != 4 {
		t.Fatalf("expected 4 potential missed frames, got %d", info.PotentialMissedFrames)
	}
	if info.LastCaptureTime == nil {
		t.Fatal("expected last capture time annotation")
	}
}

func TestScanNoInterruptedSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	scanner := recovery.NewScanner(st, logging.NewNop())
	recovered, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("expected no recovered sessions, got %d", len(recovered))
	}
}

func TestGaps(t *testing.T) {
	contiguous := []*store.Capture{
		{SequenceNum: 1}, {SequenceNum: 2}, {SequenceNum: 3},
	}
	if gaps := recovery.Gaps(contiguous); len(gaps) != 0 {
		t.Fatalf("expected no gaps for contiguous sequence, got %#v", gaps)
	}
	if gaps := recovery.Gaps(nil); len(gaps) != 0 {
		t.Fatalf("expected no gaps for empty input, got %#v", gaps)
	}

	broken := []*store.Capture{
		{SequenceNum: 1}, {SequenceNum: 2}, {SequenceNum: 4}, {SequenceNum: 5},
	}
	gaps := recovery.Gaps(broken)
	if len(gaps) != 1 {
		t.Fatalf("expected exactly one gap, got %#v", gaps)
	}
	if gaps[0] != (recovery.SequenceGap{After: 2, Before: 4, Missing: 1}) {
		t.Fatalf("unexpected gap: %#v", gaps[0])
	}
}
