// Package logging assembles structured slog loggers and formatting helpers used
// across gamesort.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with the
// item key, stage, and correlation ID of the batch it belongs to. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Console output goes to stderr: stdout is reserved for command results.
package logging
