// Package textutil provides text helpers shared by the installer, the frame
// tool client and the CLI.
//
// The primary use cases are:
//   - Stripping ANSI colour codes and stray control bytes from captured
//     terminal output before it is forwarded or logged
//   - Splitting streamed output into complete lines
//   - Turning snake_case identifiers into display labels
package textutil
