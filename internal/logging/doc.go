// Package logging assembles structured slog loggers and formatting helpers used
// across rarpack.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so dispatch code can tag log lines with run
// identifiers, worker slots, and source folders. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
