package main

import (
	"context"
	"time"

	"framebridge/internal/bridge"
	"framebridge/internal/config"
	"framebridge/internal/history"
	"framebridge/internal/install"
	"framebridge/internal/ipc"
	"framebridge/internal/logging"
	"framebridge/internal/payload"
	"framebridge/internal/probe"
	"framebridge/internal/services/frametool"
)

// backend is the operation surface shared by the daemon client and the
// in-process bridge. It also satisfies jobs.Executor.
type backend interface {
	Status(ctx context.Context) (*ipc.StatusResponse, error)
	ProbeTool(ctx context.Context) (probe.ToolStatus, error)
	ProbeInterpreter(ctx context.Context) (probe.PythonEnvironment, error)
	RunScript(ctx context.Context, script string, args []string) (payload.ScriptResult, error)
	CancelScript(ctx context.Context) (bridge.CancelResult, error)
	RunTool(ctx context.Context, args []string) (payload.ScriptResult, error)
	InstallTool(ctx context.Context) (install.Result, error)
	BatchCompress(ctx context.Context, opts frametool.BatchCompressOptions) (frametool.BatchCompressResult, error)
	ExtractFirstFrames(ctx context.Context, opts frametool.ExtractFirstFrameOptions) (frametool.ExtractFirstFrameResult, error)
	Events(ctx context.Context, since uint64, limit int, wait time.Duration) (bridge.EventBatch, error)
	History(ctx context.Context, operation string, limit int) ([]history.Run, error)
	Close() error
}

type remoteBackend struct {
	*ipc.Client
}

type localBackend struct {
	cfg   *config.Config
	svc   *bridge.Service
	store *history.Store
}

func newLocalBackend(cfg *config.Config) (*localBackend, error) {
	// Terminal output belongs to the command; operation logs go to the file.
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.LogFilePath()},
	})
	if err != nil {
		return nil, err
	}
	local := &localBackend{cfg: cfg}
	var opts []bridge.Option
	if cfg.History.Enabled {
		store, err := history.Open(context.Background(), cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		local.store = store
		opts = append(opts, bridge.WithHistory(store))
	}
	svc, err := bridge.New(cfg, logger, opts...)
	if err != nil {
		_ = local.store.Close()
		return nil, err
	}
	local.svc = svc
	return local, nil
}

func (l *localBackend) Status(ctx context.Context) (*ipc.StatusResponse, error) {
	return &ipc.StatusResponse{StatusInfo: l.svc.Status(ctx), LogPath: l.cfg.LogFilePath()}, nil
}

func (l *localBackend) ProbeTool(ctx context.Context) (probe.ToolStatus, error) {
	return l.svc.ProbeTool(ctx), nil
}

func (l *localBackend) ProbeInterpreter(ctx context.Context) (probe.PythonEnvironment, error) {
	return l.svc.ProbeInterpreter(ctx), nil
}

func (l *localBackend) RunScript(ctx context.Context, script string, args []string) (payload.ScriptResult, error) {
	return l.svc.RunScript(ctx, script, args), nil
}

func (l *localBackend) CancelScript(ctx context.Context) (bridge.CancelResult, error) {
	return l.svc.CancelScript(ctx), nil
}

func (l *localBackend) RunTool(ctx context.Context, args []string) (payload.ScriptResult, error) {
	return l.svc.RunTool(ctx, args), nil
}

func (l *localBackend) InstallTool(ctx context.Context) (install.Result, error) {
	return l.svc.InstallTool(ctx), nil
}

func (l *localBackend) BatchCompress(ctx context.Context, opts frametool.BatchCompressOptions) (frametool.BatchCompressResult, error) {
	return l.svc.BatchCompress(ctx, opts), nil
}

func (l *localBackend) ExtractFirstFrames(ctx context.Context, opts frametool.ExtractFirstFrameOptions) (frametool.ExtractFirstFrameResult, error) {
	return l.svc.ExtractFirstFrames(ctx, opts), nil
}

func (l *localBackend) Events(ctx context.Context, since uint64, limit int, wait time.Duration) (bridge.EventBatch, error) {
	return l.svc.Events(ctx, since, limit, wait)
}

func (l *localBackend) History(ctx context.Context, operation string, limit int) ([]history.Run, error) {
	return l.svc.History(ctx, operation, limit)
}

func (l *localBackend) Close() error {
	return l.store.Close()
}
