package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"roadlog/internal/preflight"
	"roadlog/internal/testsupport"
)

func TestCheckDataDirCreatesAndProbes(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	result := preflight.CheckDataDir(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got %#v", result)
	}
	if _, err := os.Stat(cfg.Paths.DataDir); err != nil {
		t.Fatalf("data dir was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, ".roadlog-write-check")); !os.IsNotExist(err) {
		t.Fatal("write probe must be cleaned up")
	}
}

func TestCheckDataDirUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.DataDir = ""

	result := preflight.CheckDataDir(cfg)
	if result.Passed {
		t.Fatal("expected failure for unconfigured data dir")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg.Publish.MinFreeSpaceGiB = 0
	if result := preflight.CheckFreeSpace(cfg); !result.Passed {
		t.Fatalf("expected pass with no minimum, got %#v", result)
	}

	// No filesystem has an exbibyte free.
	cfg.Publish.MinFreeSpaceGiB = 1 << 30
	if result := preflight.CheckFreeSpace(cfg); result.Passed {
		t.Fatalf("expected failure with absurd minimum, got %#v", result)
	}
}

func TestRunAndAllPassed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish.MinFreeSpaceGiB = 0

	results := preflight.Run(cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(results))
	}
	if !preflight.AllPassed(results) {
		t.Fatalf("expected all checks to pass: %#v", results)
	}

	results[0].Passed = false
	if preflight.AllPassed(results) {
		t.Fatal("AllPassed must be false when any check fails")
	}
}
