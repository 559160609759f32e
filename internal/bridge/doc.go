// Package bridge is the request/response boundary between the UI (or CLI)
// and the external runtime orchestration.
//
// Every operation returns a result value carrying its own success flag and
// error text; Go errors are reserved for local plumbing such as the history
// database. Long-running operations publish progress into the event hub
// under a fresh operation id, finish with an operation_done event, and are
// journaled into history when a store is configured. Read-only probes are
// neither published nor journaled.
//
// The daemon exposes a Service over JSON-RPC (see package ipc); the CLI uses
// one in-process when no daemon is listening.
package bridge
