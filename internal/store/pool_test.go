package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"roadlog/internal/config"
)

// Pinning several pooled connections before the delete forces it onto a
// connection the pool creates fresh. Pragmas applied per-connection rather
// than per-pool would leave such a connection without foreign keys, which is
// exactly where a cascade-dependent delete would strand orphan rows.
func TestDeleteSessionCascadesAcrossPooledConnections(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	st, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	session, err := st.CreateSession(ctx, "pooled delete", CaptureSettings{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for seq := int64(1); seq <= 3; seq++ {
		capture := &Capture{
			SessionID:   session.ID,
			SequenceNum: seq,
			Timestamp:   time.Now().UTC(),
			Image:       []byte("jpeg-bytes"),
		}
		if err := st.SaveCapture(ctx, capture); err != nil {
			t.Fatalf("SaveCapture failed: %v", err)
		}
	}
	if err := st.SavePublishState(ctx, &PublishState{
		SessionID:      session.ID,
		PublishStarted: time.Now().UTC(),
		TotalToUpload:  3,
		InProgress:     true,
	}); err != nil {
		t.Fatalf("SavePublishState failed: %v", err)
	}

	var pinned []*sql.Conn
	for i := 0; i < 4; i++ {
		conn, err := st.db.Conn(ctx)
		if err != nil {
			t.Fatalf("pin pooled connection: %v", err)
		}
		pinned = append(pinned, conn)
	}

	var foreignKeys int
	if err := pinned[len(pinned)-1].QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("read foreign_keys pragma: %v", err)
	}
	if foreignKeys != 1 {
		t.Fatal("foreign_keys pragma is off on a pooled connection")
	}

	if err := st.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	for _, conn := range pinned {
		_ = conn.Close()
	}

	count, err := st.CaptureCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("CaptureCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 captures after delete, got %d", count)
	}
	state, err := st.GetPublishState(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetPublishState failed: %v", err)
	}
	if state != nil {
		t.Fatalf("expected publish state removed, got %#v", state)
	}
	if _, err := st.GetSession(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted session, got %v", err)
	}
}
