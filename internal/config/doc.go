// Package config loads and validates the roadlog configuration file.
//
// Configuration is TOML (~/.config/roadlog/config.toml by default) with an
// embedded sample used by "roadlog config init". Load applies defaults,
// expands ~ in paths, and honors the GITHUB_TOKEN environment override so
// the token never has to live on disk.
package config
