// Package ipc exposes the bridge service over JSON-RPC on a Unix domain
// socket and ships the matching client used by the CLI.
//
// Every RPC maps onto one bridge operation. Long operations hold their call
// open until the work resolves, so a UI issues concurrent calls (Events,
// CancelScript) on the same connection while a RunScript call is pending.
// Request and response DTOs live in types.go; add new endpoints there first
// to keep the protocol stable for existing clients.
package ipc
