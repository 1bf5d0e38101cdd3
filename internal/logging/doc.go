// Package logging assembles the structured slog loggers used by handoff.
//
// The host's stdout carries the native messaging channel, so every logger
// built here writes to stderr and/or log files only; asking for "stdout" is
// an error. The package owns the console and JSON handlers, attribute helpers,
// request/session tagging via context, and log retention pruning. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
