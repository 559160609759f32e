// Package main hosts the framebridge CLI entrypoint and command graph.
//
// Commands talk to a running daemon over its IPC socket when one answers and
// otherwise run the same bridge operations in-process, so every operation is
// usable with or without `framebridge start`. Long operations follow the
// event stream while they run and print progress as it arrives.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
