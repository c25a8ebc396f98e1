package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"roadlog/internal/config"
)

// Result reports one check's outcome.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes all local checks and returns their results.
func Run(cfg *config.Config) []Result {
	return []Result{
		CheckDataDir(cfg),
		CheckFreeSpace(cfg),
	}
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDataDir verifies the data directory exists (creating it if needed)
// and is writable.
func CheckDataDir(cfg *config.Config) Result {
	const name = "Data directory"
	dir := cfg.Paths.DataDir
	if dir == "" {
		return Result{Name: name, Detail: "paths.data_dir not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".roadlog-write-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not writable: %v", dir, err)}
	}
	_ = os.Remove(probe)
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckFreeSpace verifies the filesystem holding the data directory has at
// least the configured free space.
func CheckFreeSpace(cfg *config.Config) Result {
	const name = "Free disk space"
	dir := cfg.Paths.DataDir
	if dir == "" {
		return Result{Name: name, Detail: "paths.data_dir not configured"}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", dir, err)}
	}

	freeBytes := stat.Bavail * uint64(stat.Bsize)
	minBytes := uint64(cfg.Publish.MinFreeSpaceGiB) * 1024 * 1024 * 1024
	if freeBytes < minBytes {
		return Result{
			Name: name,
			Detail: fmt.Sprintf("%.1f GiB free, %d GiB required",
				float64(freeBytes)/(1024*1024*1024), cfg.Publish.MinFreeSpaceGiB),
		}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%.1f GiB free", float64(freeBytes)/(1024*1024*1024)),
	}
}
