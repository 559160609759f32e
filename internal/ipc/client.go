package ipc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"framebridge/internal/bridge"
	"framebridge/internal/events"
	"framebridge/internal/history"
	"framebridge/internal/install"
	"framebridge/internal/payload"
	"framebridge/internal/probe"
	"framebridge/internal/services/frametool"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		err := c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	}
	return nil
}

// call issues method and waits for the reply or ctx. An abandoned call keeps
// running in the daemon.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pending := c.client.Go(ServiceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-pending.Done:
		return done.Error
	}
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProbeTool reports whether the frame tool is installed.
func (c *Client) ProbeTool(ctx context.Context) (probe.ToolStatus, error) {
	var resp ProbeToolResponse
	err := c.call(ctx, "ProbeTool", ProbeToolRequest{}, &resp)
	return resp.Status, err
}

// ProbeInterpreter reports the usable Python interpreter.
func (c *Client) ProbeInterpreter(ctx context.Context) (probe.PythonEnvironment, error) {
	var resp ProbeInterpreterResponse
	err := c.call(ctx, "ProbeInterpreter", ProbeInterpreterRequest{}, &resp)
	return resp.Environment, err
}

// RunScript runs a helper script and waits for its result.
func (c *Client) RunScript(ctx context.Context, script string, args []string) (payload.ScriptResult, error) {
	var resp RunScriptResponse
	err := c.call(ctx, "RunScript", RunScriptRequest{Script: script, Args: args}, &resp)
	return resp.Result, err
}

// CancelScript terminates the running helper script.
func (c *Client) CancelScript(ctx context.Context) (bridge.CancelResult, error) {
	var resp CancelScriptResponse
	err := c.call(ctx, "CancelScript", CancelScriptRequest{}, &resp)
	return bridge.CancelResult{Canceled: resp.Canceled}, err
}

// RunTool runs the frame tool with raw arguments.
func (c *Client) RunTool(ctx context.Context, args []string) (payload.ScriptResult, error) {
	var resp RunToolResponse
	err := c.call(ctx, "RunTool", RunToolRequest{Args: args}, &resp)
	return resp.Result, err
}

// InstallTool installs and verifies the frame tool.
func (c *Client) InstallTool(ctx context.Context) (install.Result, error) {
	var resp InstallToolResponse
	err := c.call(ctx, "InstallTool", InstallToolRequest{}, &resp)
	return resp.Result, err
}

// BatchCompress runs the compress subcommand.
func (c *Client) BatchCompress(ctx context.Context, opts frametool.BatchCompressOptions) (frametool.BatchCompressResult, error) {
	var resp BatchCompressResponse
	err := c.call(ctx, "BatchCompress", BatchCompressRequest{Options: opts}, &resp)
	return resp.Result, err
}

// ExtractFirstFrames runs the dirfirst subcommand.
func (c *Client) ExtractFirstFrames(ctx context.Context, opts frametool.ExtractFirstFrameOptions) (frametool.ExtractFirstFrameResult, error) {
	var resp ExtractFirstFramesResponse
	err := c.call(ctx, "ExtractFirstFrames", ExtractFirstFramesRequest{Options: opts}, &resp)
	return resp.Result, err
}

// Events polls the event stream.
func (c *Client) Events(ctx context.Context, since uint64, limit int, wait time.Duration) (bridge.EventBatch, error) {
	var resp EventsResponse
	req := EventsRequest{Since: since, Limit: limit, WaitMillis: int(wait / time.Millisecond)}
	if err := c.call(ctx, "Events", req, &resp); err != nil {
		return bridge.EventBatch{}, err
	}
	if resp.Events == nil {
		resp.Events = []events.Event{}
	}
	return bridge.EventBatch{Events: resp.Events, Next: resp.Next}, nil
}

// History lists journaled runs.
func (c *Client) History(ctx context.Context, operation string, limit int) ([]history.Run, error) {
	var resp HistoryResponse
	if err := c.call(ctx, "History", HistoryRequest{Operation: operation, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(ctx context.Context, req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call(ctx, "LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call(ctx, "Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
