// Package logs reads the framebridge log file for the `logs` command and the
// daemon's LogTail endpoint.
//
// A negative offset returns the last N lines; a non-negative offset resumes
// from a position returned by an earlier call. Follow mode polls until a new
// line appears or the wait elapses.
package logs
