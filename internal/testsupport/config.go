package testsupport

import (
	"path/filepath"
	"testing"

	"roadlog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.GitHub.Token = "test-token"
	cfg.GitHub.Owner = "test-owner"
	cfg.GitHub.Repo = "test-repo"
	cfg.Capture.Collector = "tester"
	cfg.Publish.ItemDelayMillis = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCollector sets the collector name on the test config.
func WithCollector(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Capture.Collector = name
	}
}

// WithNtfyTopic points notifications at the given ntfy endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}
