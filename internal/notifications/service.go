package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roadlog/internal/config"
)

const userAgent = "roadlog/0.1.0"

// Progress is one progress snapshot for an active publish job.
type Progress struct {
	Completed        int
	Failed           int
	Total            int
	Percent          float64
	EstimatedSeconds int
	Message          string
}

// Service defines the notification surface exposed to the publish pipeline.
type Service interface {
	NotifyPublishStarted(ctx context.Context, sessionName string, total int) error
	NotifyProgress(ctx context.Context, sessionName string, progress Progress) error
	NotifyPublishCompleted(ctx context.Context, sessionName string, completed, failed, total int) error
	NotifyError(ctx context.Context, err error, itemContext string) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		sendProgress: cfg.Notifications.Progress,
		sendErrors:   cfg.Notifications.Errors,
	}
}

// Multi fans notifications out to every provided service. Errors from
// individual sinks are dropped; notification delivery never gates publishing.
func Multi(services ...Service) Service {
	filtered := make([]Service, 0, len(services))
	for _, svc := range services {
		if svc != nil {
			filtered = append(filtered, svc)
		}
	}
	return multiService{services: filtered}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	sendProgress bool
	sendErrors   bool
}

func (n *ntfyService) NotifyPublishStarted(ctx context.Context, sessionName string, total int) error {
	data := payload{
		title:   "Roadlog - Publish Started",
		message: fmt.Sprintf("Publishing %s: %d captures queued", sessionName, total),
		tags:    []string{"roadlog", "publish", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProgress(ctx context.Context, sessionName string, progress Progress) error {
	if !n.sendProgress {
		return nil
	}
	data := payload{
		title: "Roadlog - Publishing",
		message: fmt.Sprintf("%s: %d/%d uploaded (%.0f%%), %d failed",
			sessionName, progress.Completed, progress.Total, progress.Percent, progress.Failed),
		tags: []string{"roadlog", "publish", "progress"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, sessionName string, completed, failed, total int) error {
	data := payload{
		title:   "Roadlog - Publish Complete",
		message: fmt.Sprintf("%s: %d/%d uploaded, %d failed", sessionName, completed, total, failed),
		tags:    []string{"roadlog", "publish", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, itemContext string) error {
	if !n.sendErrors {
		return nil
	}
	message := "Publish error"
	if err != nil {
		message = err.Error()
	}
	if itemContext != "" {
		message = itemContext + ": " + message
	}
	data := payload{
		title:    "Roadlog - Error",
		message:  message,
		tags:     []string{"roadlog", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyPublishStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyProgress(context.Context, string, Progress) error { return nil }

func (noopService) NotifyPublishCompleted(context.Context, string, int, int, int) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

type multiService struct {
	services []Service
}

func (m multiService) NotifyPublishStarted(ctx context.Context, sessionName string, total int) error {
	for _, svc := range m.services {
		_ = svc.NotifyPublishStarted(ctx, sessionName, total)
	}
	return nil
}

func (m multiService) NotifyProgress(ctx context.Context, sessionName string, progress Progress) error {
	for _, svc := range m.services {
		_ = svc.NotifyProgress(ctx, sessionName, progress)
	}
	return nil
}

func (m multiService) NotifyPublishCompleted(ctx context.Context, sessionName string, completed, failed, total int) error {
	for _, svc := range m.services {
		_ = svc.NotifyPublishCompleted(ctx, sessionName, completed, failed, total)
	}
	return nil
}

func (m multiService) NotifyError(ctx context.Context, err error, itemContext string) error {
	for _, svc := range m.services {
		_ = svc.NotifyError(ctx, err, itemContext)
	}
	return nil
}
