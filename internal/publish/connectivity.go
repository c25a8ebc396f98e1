package publish

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"roadlog/internal/logging"
)

// ConnectivityWaiter suspends the caller until the remote endpoint is
// reachable. The wait is unbounded in time but cooperative: it sleeps between
// probes and wakes immediately on context cancellation.
type ConnectivityWaiter interface {
	WaitOnline(ctx context.Context) error
}

const (
	probeInitialInterval = 5 * time.Second
	probeMaxInterval     = 30 * time.Second
	probeTimeout         = 5 * time.Second
)

type probeWaiter struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewConnectivityWaiter probes endpoint with HEAD requests until any HTTP
// response arrives. A response of any status counts as online; only transport
// failures count as offline.
func NewConnectivityWaiter(endpoint string, logger *slog.Logger) ConnectivityWaiter {
	return &probeWaiter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: probeTimeout},
		logger:   logging.WithComponent(logger, "connectivity"),
	}
}

func (p *probeWaiter) WaitOnline(ctx context.Context) error {
	if p.online(ctx) {
		return nil
	}
	p.logger.Warn("network unreachable, waiting for connectivity",
		logging.String("endpoint", p.endpoint),
		logging.String(logging.FieldEventType, "network_offline"),
	)

	interval := probeInitialInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if p.online(ctx) {
			p.logger.Info("connectivity restored",
				logging.String(logging.FieldEventType, "network_online"))
			return nil
		}
		if next := interval * 2; next <= probeMaxInterval {
			interval = next
		}
	}
}

func (p *probeWaiter) online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// alwaysOnline is used in tests and when no waiter is configured.
type alwaysOnline struct{}

func (alwaysOnline) WaitOnline(context.Context) error { return nil }
