// Package logging constructs the slog loggers used across roadlog and
// standardizes attribute keys so store, recovery, and publish events stay
// greppable.
//
// Loggers are built from config (level, format, output paths) and support
// console and JSON handlers. Helper constructors mirror slog's attribute
// functions; use them instead of raw slog calls so field names stay uniform.
package logging
