package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"roadlog/internal/notifications"
	"roadlog/internal/testsupport"
)

type recordedPush struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyRecorder(t *testing.T) (*httptest.Server, *[]recordedPush) {
	t.Helper()
	var mu sync.Mutex
	pushes := &[]recordedPush{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		*pushes = append(*pushes, recordedPush{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
	}))
	t.Cleanup(server.Close)
	return server, pushes
}

func TestNtfyPublishLifecycle(t *testing.T) {
	server, pushes := newNtfyRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	ctx := context.Background()
	if err := svc.NotifyPublishStarted(ctx, "Morning Loop", 12); err != nil {
		t.Fatalf("NotifyPublishStarted failed: %v", err)
	}
	if err := svc.NotifyProgress(ctx, "Morning Loop", notifications.Progress{
		Completed: 6, Total: 12, Percent: 50,
	}); err != nil {
		t.Fatalf("NotifyProgress failed: %v", err)
	}
	if err := svc.NotifyPublishCompleted(ctx, "Morning Loop", 10, 2, 12); err != nil {
		t.Fatalf("NotifyPublishCompleted failed: %v", err)
	}

	if len(*pushes) != 3 {
		t.Fatalf("expected 3 pushes, got %d", len(*pushes))
	}
	started := (*pushes)[0]
	if !strings.Contains(started.body, "Morning Loop") || !strings.Contains(started.tags, "publish") {
		t.Fatalf("unexpected start push: %#v", started)
	}
	completed := (*pushes)[2]
	if completed.priority != "high" {
		t.Fatalf("completion with failures must push high priority, got %q", completed.priority)
	}
}

func TestNtfyProgressToggle(t *testing.T) {
	server, pushes := newNtfyRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Progress = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyProgress(context.Background(), "s", notifications.Progress{}); err != nil {
		t.Fatalf("NotifyProgress failed: %v", err)
	}
	if len(*pushes) != 0 {
		t.Fatalf("progress pushes disabled, saw %d", len(*pushes))
	}
}

func TestNtfyErrorIncludesContext(t *testing.T) {
	server, pushes := newNtfyRecorder(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	if err := svc.NotifyError(context.Background(), errors.New("boom"), "capture 7"); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	if len(*pushes) != 1 {
		t.Fatalf("expected 1 push, got %d", len(*pushes))
	}
	push := (*pushes)[0]
	if !strings.Contains(push.body, "capture 7") || !strings.Contains(push.body, "boom") {
		t.Fatalf("unexpected error push body %q", push.body)
	}
	if push.priority != "high" {
		t.Fatalf("error pushes must be high priority, got %q", push.priority)
	}
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := notifications.NewService(cfg)
	if err := svc.NotifyPublishStarted(context.Background(), "s", 1); err != nil {
		t.Fatalf("noop service must never fail: %v", err)
	}
}

type countingService struct {
	notifications.Service
	calls int
	fail  bool
}

func (c *countingService) NotifyPublishStarted(context.Context, string, int) error {
	c.calls++
	if c.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestMultiFansOutAndSwallowsErrors(t *testing.T) {
	broken := &countingService{fail: true}
	healthy := &countingService{}

	svc := notifications.Multi(broken, nil, healthy)
	if err := svc.NotifyPublishStarted(context.Background(), "s", 1); err != nil {
		t.Fatalf("Multi must swallow sink errors, got %v", err)
	}
	if broken.calls != 1 || healthy.calls != 1 {
		t.Fatalf("expected every sink called once, got %d/%d", broken.calls, healthy.calls)
	}
}
