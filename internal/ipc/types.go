package ipc

import (
	"framebridge/internal/bridge"
	"framebridge/internal/events"
	"framebridge/internal/history"
	"framebridge/internal/install"
	"framebridge/internal/payload"
	"framebridge/internal/probe"
	"framebridge/internal/services/frametool"
)

// ServiceName is the net/rpc receiver name every method is registered under.
const ServiceName = "Bridge"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse combines bridge status with daemon file locations.
type StatusResponse struct {
	bridge.StatusInfo
	Socket  string `json:"socket"`
	LogPath string `json:"log_path"`
}

// ProbeToolRequest asks whether the frame tool is installed.
type ProbeToolRequest struct{}

// ProbeToolResponse carries the probe result.
type ProbeToolResponse struct {
	Status probe.ToolStatus `json:"status"`
}

// ProbeInterpreterRequest asks for the usable Python interpreter.
type ProbeInterpreterRequest struct{}

// ProbeInterpreterResponse carries the interpreter probe result.
type ProbeInterpreterResponse struct {
	Environment probe.PythonEnvironment `json:"environment"`
}

// RunScriptRequest names a helper script and its arguments.
type RunScriptRequest struct {
	Script string   `json:"script"`
	Args   []string `json:"args"`
}

// RunScriptResponse carries the parsed script result.
type RunScriptResponse struct {
	Result payload.ScriptResult `json:"result"`
}

// CancelScriptRequest terminates the running helper script.
type CancelScriptRequest struct{}

// CancelScriptResponse reports whether a script was running.
type CancelScriptResponse struct {
	Canceled bool `json:"canceled"`
}

// RunToolRequest passes raw arguments to the frame tool.
type RunToolRequest struct {
	Args []string `json:"args"`
}

// RunToolResponse carries the tool result.
type RunToolResponse struct {
	Result payload.ScriptResult `json:"result"`
}

// InstallToolRequest starts an install attempt.
type InstallToolRequest struct{}

// InstallToolResponse carries the final install state.
type InstallToolResponse struct {
	Result install.Result `json:"result"`
}

// BatchCompressRequest carries compress options.
type BatchCompressRequest struct {
	Options frametool.BatchCompressOptions `json:"options"`
}

// BatchCompressResponse carries the compress summary.
type BatchCompressResponse struct {
	Result frametool.BatchCompressResult `json:"result"`
}

// ExtractFirstFramesRequest carries dirfirst options.
type ExtractFirstFramesRequest struct {
	Options frametool.ExtractFirstFrameOptions `json:"options"`
}

// ExtractFirstFramesResponse carries the extraction summary.
type ExtractFirstFramesResponse struct {
	Result frametool.ExtractFirstFrameResult `json:"result"`
}

// EventsRequest polls the event stream. WaitMillis > 0 blocks until an event
// newer than Since arrives or the wait elapses.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse returns one page of events and the cursor for the next poll.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// HistoryRequest lists journaled runs, optionally for one operation.
type HistoryRequest struct {
	Operation string `json:"operation"`
	Limit     int    `json:"limit"`
}

// HistoryResponse contains runs, newest first.
type HistoryResponse struct {
	Runs []history.Run `json:"runs"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
