// Package daemon coordinates the long-running framebridge process.
//
// It holds the flock-based single-instance lock, opens the operation
// journal, wires the bridge service, and serves it over the IPC socket.
// Shutdown arrives either through the caller's context or a Shutdown RPC;
// Done reports the latter so the process runtime can exit cleanly.
//
// Keep orchestration logic here: the operations themselves live in bridge
// and the packages it wires together.
package daemon
