package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"framebridge/internal/config"
	"framebridge/internal/events"
	"framebridge/internal/history"
	"framebridge/internal/install"
	"framebridge/internal/invoke"
	"framebridge/internal/logging"
	"framebridge/internal/notifications"
	"framebridge/internal/payload"
	"framebridge/internal/preflight"
	"framebridge/internal/probe"
	"framebridge/internal/services"
	"framebridge/internal/services/frametool"
	"framebridge/internal/services/python"
)

// Operation names used for events, history and log correlation.
const (
	OpProbeTool          = "probe_tool"
	OpProbeInterpreter   = "probe_interpreter"
	OpRunScript          = "run_script"
	OpRunTool            = "run_tool"
	OpInstallTool        = "install_tool"
	OpBatchCompress      = "batch_compress"
	OpExtractFirstFrames = "extract_first_frames"
)

const maxEventWait = 30 * time.Second

// CancelResult reports whether a cancel request reached a running script.
type CancelResult struct {
	Canceled bool `json:"canceled"`
}

// EventBatch is one page of the event stream.
type EventBatch struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// StatusInfo describes the running bridge.
type StatusInfo struct {
	PID            int                `json:"pid"`
	StartedAt      time.Time          `json:"startedAt"`
	Uptime         time.Duration      `json:"uptime"`
	ScriptRunning  bool               `json:"scriptRunning"`
	InstallState   install.State      `json:"installState"`
	HistoryEnabled bool               `json:"historyEnabled"`
	HistoryPath    string             `json:"historyPath,omitempty"`
	LatestEvent    uint64             `json:"latestEvent"`
	ActiveOps      int64              `json:"activeOperations"`
	Checks         []preflight.Result `json:"checks"`
}

// Option configures a Service.
type Option func(*Service)

// WithHistory journals finished operations into store.
func WithHistory(store *history.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithHub publishes events into hub instead of a private one.
func WithHub(hub *events.Hub) Option {
	return func(s *Service) {
		if hub != nil {
			s.hub = hub
		}
	}
}

// WithInvoker routes every invocation through inv.
func WithInvoker(inv *invoke.Invoker) Option {
	return func(s *Service) {
		if inv != nil {
			s.invoker = inv
		}
	}
}

// WithNotifier sends install and batch outcomes through n.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// Service implements the UI-facing operations.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	hub       *events.Hub
	history   *history.Store
	notifier  notifications.Service
	invoker   *invoke.Invoker
	tool      *frametool.Client
	python    *python.Runner
	installer *install.Installer
	started   time.Time
	active    atomic.Int64
}

// New wires the clients for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "bridge"),
		started: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = events.NewHub(cfg.Events.Capacity)
	}
	if s.invoker == nil {
		s.invoker = invoke.New(logger)
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(cfg)
	}

	s.tool = frametool.New(cfg, logger, frametool.WithRunner(s.invoker))
	py, err := python.New(cfg, logger,
		python.WithStarter(s.invoker),
		python.WithProber(probe.New(s.invoker, cfg.PythonProbeTimeout(), logger)),
	)
	if err != nil {
		return nil, err
	}
	s.python = py
	s.installer = install.New(
		install.OptionsFromConfig(cfg),
		s.invoker,
		probe.New(s.invoker, cfg.ToolProbeTimeout(), logger),
		logger,
	)
	return s, nil
}

// Hub exposes the event buffer.
func (s *Service) Hub() *events.Hub { return s.hub }

// ProbeTool reports whether the frame tool is installed.
func (s *Service) ProbeTool(ctx context.Context) probe.ToolStatus {
	ctx, op := s.begin(ctx, OpProbeTool)
	status := s.tool.Status(ctx)
	s.finishQuiet(ctx, op, status.Installed)
	return status
}

// ProbeInterpreter reports the usable Python interpreter.
func (s *Service) ProbeInterpreter(ctx context.Context) probe.PythonEnvironment {
	ctx, op := s.begin(ctx, OpProbeInterpreter)
	env := s.python.CheckEnvironment(ctx)
	s.finishQuiet(ctx, op, env.Available)
	return env
}

// RunScript runs a helper script, publishing script_progress events.
func (s *Service) RunScript(ctx context.Context, script string, args []string) payload.ScriptResult {
	ctx, op := s.begin(ctx, OpRunScript)
	res := s.python.Execute(ctx, script, args, func(value float64) {
		s.hub.Publish(events.Percent(events.ScriptProgress, op.id, value))
	})
	s.finish(ctx, op, res.Success, scriptMessage(res), res.Error, map[string]any{
		"script":   script,
		"args":     args,
		"exitCode": res.ExitCode,
		"timedOut": res.TimedOut,
	})
	return res
}

// CancelScript terminates the running helper script, if any.
func (s *Service) CancelScript(ctx context.Context) CancelResult {
	canceled := s.python.Cancel()
	logging.WithContext(ctx, s.logger).Info("script cancel",
		logging.String(logging.FieldEventType, "script_cancel"),
		logging.Bool("canceled", canceled),
	)
	return CancelResult{Canceled: canceled}
}

// RunTool runs the frame tool with raw arguments, publishing tool_output events.
func (s *Service) RunTool(ctx context.Context, args []string) payload.ScriptResult {
	ctx, op := s.begin(ctx, OpRunTool)
	res := s.tool.Run(ctx, args, func(chunk invoke.Chunk) {
		s.hub.Publish(events.Text(events.ToolOutput, op.id, chunk.Text))
	})
	s.finish(ctx, op, res.Success, scriptMessage(res), res.Error, map[string]any{
		"args":     args,
		"exitCode": res.ExitCode,
	})
	return res
}

// InstallTool installs and verifies the frame tool, publishing
// install_progress events.
func (s *Service) InstallTool(ctx context.Context) install.Result {
	ctx, op := s.begin(ctx, OpInstallTool)
	res := s.installer.Install(ctx, func(text string) {
		s.hub.Publish(events.Text(events.InstallProgress, op.id, text))
	})
	s.finish(ctx, op, res.Success, res.Message, res.Error, map[string]any{
		"state":   res.State,
		"version": res.Version,
	})
	if res.Success {
		s.notify(ctx, notifications.EventInstallCompleted, notifications.Payload{"version": res.Version})
	} else {
		s.notifyFailure(ctx, op, res.Message, res.Error)
	}
	return res
}

// BatchCompress runs compress, publishing compress_progress log events.
func (s *Service) BatchCompress(ctx context.Context, opts frametool.BatchCompressOptions) frametool.BatchCompressResult {
	ctx, op := s.begin(ctx, OpBatchCompress)
	res := s.tool.BatchCompress(ctx, opts, func(evt frametool.LogEvent) {
		s.hub.Publish(events.Log(events.CompressProgress, op.id, evt.Message))
	})
	s.finish(ctx, op, res.Success, res.Message, res.Error, map[string]any{"options": opts, "result": res})
	if res.Success {
		s.notify(ctx, notifications.EventCompressCompleted, batchPayload(opts.OutputDir, res.TotalFiles, res.FailedCount))
	} else {
		s.notifyFailure(ctx, op, res.Message, res.Error)
	}
	return res
}

// ExtractFirstFrames runs dirfirst, publishing extract_progress log events.
func (s *Service) ExtractFirstFrames(ctx context.Context, opts frametool.ExtractFirstFrameOptions) frametool.ExtractFirstFrameResult {
	ctx, op := s.begin(ctx, OpExtractFirstFrames)
	res := s.tool.ExtractFirstFrames(ctx, opts, func(evt frametool.LogEvent) {
		s.hub.Publish(events.Log(events.ExtractProgress, op.id, evt.Message))
	})
	s.finish(ctx, op, res.Success, res.Message, res.Error, map[string]any{"options": opts, "result": res})
	if res.Success {
		s.notify(ctx, notifications.EventExtractCompleted, batchPayload(opts.OutputDir, res.TotalVideos, res.FailedCount))
	} else {
		s.notifyFailure(ctx, op, res.Message, res.Error)
	}
	return res
}

// Events returns events after since. A positive wait blocks until one arrives
// or the wait elapses; waits are capped.
func (s *Service) Events(ctx context.Context, since uint64, limit int, wait time.Duration) (EventBatch, error) {
	block := wait > 0
	if block {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, min(wait, maxEventWait))
		defer cancel()
	}
	evts, next, err := s.hub.Fetch(ctx, since, limit, block)
	if err != nil && ctx.Err() != nil {
		// An elapsed wait is an empty page, not a failure.
		return EventBatch{Events: []events.Event{}, Next: next}, nil
	}
	if err != nil {
		return EventBatch{}, err
	}
	if evts == nil {
		evts = []events.Event{}
	}
	return EventBatch{Events: evts, Next: next}, nil
}

// History lists journaled runs, newest first.
func (s *Service) History(ctx context.Context, operation string, limit int) ([]history.Run, error) {
	if s.history == nil {
		return []history.Run{}, nil
	}
	runs, err := s.history.List(ctx, operation, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []history.Run{}
	}
	return runs, nil
}

// Status describes the bridge process.
func (s *Service) Status(ctx context.Context) StatusInfo {
	info := StatusInfo{
		PID:            os.Getpid(),
		StartedAt:      s.started,
		Uptime:         time.Since(s.started).Round(time.Second),
		ScriptRunning:  s.python.Running(),
		InstallState:   s.installer.State(),
		HistoryEnabled: s.history != nil,
		LatestEvent:    s.hub.Latest(),
		ActiveOps:      s.active.Load(),
		Checks:         preflight.RunAll(ctx, s.cfg),
	}
	if s.history != nil {
		info.HistoryPath = s.history.Path()
	}
	return info
}

type operation struct {
	name    string
	id      string
	started time.Time
}

func (s *Service) begin(ctx context.Context, name string) (context.Context, operation) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithOperation(ctx, name)
	ctx, _ = services.EnsureRequestID(ctx)
	id := uuid.NewString()
	s.active.Add(1)
	logging.WithContext(ctx, s.logger).Debug("operation started", logging.String("operation_id", id))
	return ctx, operation{name: name, id: id, started: time.Now().UTC()}
}

// finishQuiet ends a read-only operation: no event, no journal entry.
func (s *Service) finishQuiet(ctx context.Context, op operation, success bool) {
	s.active.Add(-1)
	logging.WithContext(ctx, s.logger).Debug("operation finished",
		logging.Bool("success", success),
		logging.Duration("duration", time.Since(op.started)),
	)
}

func (s *Service) finish(ctx context.Context, op operation, success bool, message, errText string, detail map[string]any) {
	s.active.Add(-1)
	logger := logging.WithContext(ctx, s.logger)
	finished := time.Now().UTC()
	s.hub.Publish(events.Done(op.id, message, success))

	if s.history != nil {
		run := history.Run{
			ID:         op.id,
			Operation:  op.name,
			StartedAt:  op.started,
			FinishedAt: finished,
			Success:    success,
			Message:    message,
			Error:      errText,
		}
		if raw, err := json.Marshal(detail); err == nil {
			run.Detail = raw
		}
		// Record even when the caller's context was canceled.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if _, err := s.history.Record(recordCtx, run); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "operation missing from history"),
				logging.String(logging.FieldErrorHint, "check the history database path and disk space"),
			)
		}
		cancel()
	}

	logger.Info("operation finished",
		logging.String(logging.FieldEventType, op.name+"_done"),
		logging.Bool("success", success),
		logging.String("message", message),
		logging.Duration("duration", finished.Sub(op.started)),
	)
}

func (s *Service) notify(ctx context.Context, event notifications.Event, data notifications.Payload) {
	// Deliver even when the caller has gone away.
	sendCtx := context.WithoutCancel(ctx)
	if err := s.notifier.Publish(sendCtx, event, data); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user was not alerted"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
	}
}

func (s *Service) notifyFailure(ctx context.Context, op operation, message, errText string) {
	if errText == "" {
		errText = message
	}
	s.notify(ctx, notifications.EventError, notifications.Payload{"operation": op.name, "error": errText})
}

func batchPayload(outputDir string, total, failed *int) notifications.Payload {
	data := notifications.Payload{"outputDir": outputDir}
	if total != nil {
		data["total"] = *total
	}
	if failed != nil {
		data["failed"] = *failed
	}
	return data
}

func scriptMessage(res payload.ScriptResult) string {
	switch {
	case res.Success:
		return "completed"
	case res.TimedOut:
		return "timed out"
	default:
		return "failed"
	}
}
