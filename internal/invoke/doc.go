// Package invoke runs external processes under a time budget and streams
// their output while it is produced.
//
// Every invocation is represented by a Handle that owns the child process,
// its accumulated stdout/stderr, an optional chunk channel and the single
// Outcome it resolves to. Resolution happens exactly once, on whichever comes
// first: the process exiting, a spawn error, the timer firing, or the caller
// cancelling. Timeouts and cancellation terminate the whole process group and
// resolve immediately; reaping continues in the background.
//
// Spawn failures, non-zero exits and timeouts are reported in the Outcome, not
// as Go errors, so callers can always turn them into result values.
package invoke
