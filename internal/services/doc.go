// Package services defines shared utilities consumed by the external process
// clients and the bridge facade.
//
// Key responsibilities:
//   - Context helpers that stamp operation names and correlation identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (tool missing, spawn failure, non-zero exit, timeout, bad output).
//   - Hint strings that turn a classified failure into a next step for users.
//
// Tool-specific clients live in subpackages (frametool, python) and build on
// these helpers so error handling and observability stay uniform.
package services
