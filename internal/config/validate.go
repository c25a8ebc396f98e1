package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable for local operation.
// Remote credentials are checked separately by ValidateRemote so read-only
// commands (sessions list, recover) work without a token.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Capture.IntervalSeconds <= 0 {
		return errors.New("capture.interval_seconds must be positive")
	}
	if c.Capture.ImageQuality < 1 || c.Capture.ImageQuality > 100 {
		return errors.New("capture.image_quality must be between 1 and 100")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateRemote ensures the fields required to reach the content repository
// are present. Called before any publish operation.
func (c *Config) ValidateRemote() error {
	if c.GitHub.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/roadlog/config.toml"
		}
		return fmt.Errorf("github.token is required. Set GITHUB_TOKEN env var or edit %s (create with 'roadlog config init')", defaultPath)
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return errors.New("github.owner and github.repo must be set")
	}
	return nil
}
