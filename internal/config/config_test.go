package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roadlog/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	defaults := config.Default()
	if cfg.Capture.IntervalSeconds != defaults.Capture.IntervalSeconds {
		t.Fatalf("expected default interval, got %d", cfg.Capture.IntervalSeconds)
	}
	if cfg.GitHub.BaseURL == "" || cfg.GitHub.Branch == "" {
		t.Fatalf("expected github defaults populated, got %#v", cfg.GitHub)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "/tmp/roadlog-test/data"

[github]
owner = " someone "
repo = "road-surveys"
base_url = "https://github.example.com/api/v3/"

[capture]
collector = "alice"
interval_seconds = 5
image_quality = 70
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Capture.Collector != "alice" || cfg.Capture.IntervalSeconds != 5 {
		t.Fatalf("unexpected capture config: %#v", cfg.Capture)
	}
	if cfg.GitHub.Owner != "someone" {
		t.Fatalf("expected owner to be trimmed, got %q", cfg.GitHub.Owner)
	}
	if strings.HasSuffix(cfg.GitHub.BaseURL, "/") {
		t.Fatalf("expected base url trailing slash trimmed, got %q", cfg.GitHub.BaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[capture]
image_quality = 400
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := config.Load(path); err == nil {
		t.Fatal("expected invalid image quality to be rejected")
	}
}

func TestLoadEnvTokenOverride(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[github]
token = "file-token"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.GitHub.Token)
	}
}

func TestValidateRemote(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateRemote(); err == nil {
		t.Fatal("expected missing token to be rejected")
	}
	cfg.GitHub.Token = "token"
	if err := cfg.ValidateRemote(); err == nil {
		t.Fatal("expected missing owner/repo to be rejected")
	}
	cfg.GitHub.Owner = "someone"
	cfg.GitHub.Repo = "road-surveys"
	if err := cfg.ValidateRemote(); err != nil {
		t.Fatalf("ValidateRemote failed: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected second WriteSample to refuse overwrite")
	}

	// The sample must itself parse and validate.
	if _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := config.ExpandPath("~/roadlog"); got != filepath.Join(home, "roadlog") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := config.ExpandPath("/absolute/path"); got != "/absolute/path" {
		t.Fatalf("absolute paths pass through, got %q", got)
	}
	if got := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path passes through, got %q", got)
	}
}
