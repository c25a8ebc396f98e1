package config

const (
	defaultDataDir         = "~/.local/share/roadlog"
	defaultLogDir          = "~/.local/share/roadlog/logs"
	defaultGitHubBranch    = "main"
	defaultGitHubBaseURL   = "https://api.github.com"
	defaultRequestTimeout  = 30
	defaultCaptureInterval = 2
	defaultImageQuality    = 85
	defaultItemDelayMillis = 500
	defaultMinFreeSpaceGiB = 1
	defaultNtfyTimeout     = 10
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		GitHub: GitHub{
			Branch:         defaultGitHubBranch,
			BaseURL:        defaultGitHubBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Capture: Capture{
			IntervalSeconds: defaultCaptureInterval,
			ImageQuality:    defaultImageQuality,
		},
		Publish: Publish{
			ItemDelayMillis: defaultItemDelayMillis,
			MinFreeSpaceGiB: defaultMinFreeSpaceGiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Progress:       true,
			Errors:         true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
