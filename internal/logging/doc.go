// Package logging assembles structured slog loggers used across framebridge.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing (stdout plus the appended framebridge.log file), and exposes
// context-aware helpers so bridge operations automatically tag log lines with
// the operation name and correlation ID. The package also provides a no-op
// logger for tests and wiring code that cannot fail, a bucketed progress
// sampler, and log retention.
package logging
