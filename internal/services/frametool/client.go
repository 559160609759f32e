package frametool

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"framebridge/internal/config"
	"framebridge/internal/invoke"
	"framebridge/internal/logging"
	"framebridge/internal/payload"
	"framebridge/internal/probe"
	"framebridge/internal/services"
	"framebridge/internal/textutil"
)

const (
	compressFailed  = "batch compress failed"
	compressDone    = "batch compress complete"
	extractFailed   = "first-frame extraction failed"
	extractDone     = "first-frame extraction complete"
	notInstalledMsg = "%s is not installed; install it first"
)

// LogEvent is one chunk of tool output in the shape batch listeners expect.
type LogEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BatchCompressResult summarizes a compress run.
type BatchCompressResult struct {
	Success      bool   `json:"success"`
	TotalFiles   *int   `json:"totalFiles,omitempty"`
	SuccessCount *int   `json:"successCount,omitempty"`
	FailedCount  *int   `json:"failedCount,omitempty"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
}

// ExtractFirstFrameResult summarizes a dirfirst run.
type ExtractFirstFrameResult struct {
	Success      bool   `json:"success"`
	TotalVideos  *int   `json:"totalVideos,omitempty"`
	SuccessCount *int   `json:"successCount,omitempty"`
	FailedCount  *int   `json:"failedCount,omitempty"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
}

// Prober resolves the tool among its candidates.
type Prober interface {
	Probe(ctx context.Context, name string, candidates iter.Seq[string]) probe.ToolStatus
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner invoke.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithProber injects a custom prober.
func WithProber(prober Prober) Option {
	return func(c *Client) {
		if prober != nil {
			c.prober = prober
		}
	}
}

// Client wraps frame-extractor CLI interactions.
type Client struct {
	name       string
	candidates probe.Candidates
	runTimeout time.Duration
	runner     invoke.Runner
	prober     Prober
	logger     *slog.Logger
}

// New constructs a frame tool client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		name:       cfg.Tool.Name,
		candidates: probe.Candidates(cfg.Tool.Candidates),
		runTimeout: cfg.ToolRunTimeout(),
		logger:     logging.NewComponentLogger(logger, "frametool"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = invoke.New(logger)
	}
	if c.prober == nil {
		c.prober = probe.New(c.runner, cfg.ToolProbeTimeout(), logger)
	}
	return c
}

// Name returns the tool's display name.
func (c *Client) Name() string { return c.name }

// Status probes the configured candidates.
func (c *Client) Status(ctx context.Context) probe.ToolStatus {
	return c.prober.Probe(ctx, c.name, c.candidates.All())
}

// Resolve returns the first installed candidate for this operation.
func (c *Client) Resolve(ctx context.Context) (string, error) {
	status := c.Status(ctx)
	if !status.Installed {
		return "", services.Wrap(services.ErrNotFound, "frametool", "resolve", fmt.Sprintf(notInstalledMsg, c.name), nil)
	}
	return status.Path, nil
}

// Run resolves the tool and invokes it with args. onChunk receives output as
// it arrives.
func (c *Client) Run(ctx context.Context, args []string, onChunk func(invoke.Chunk)) payload.ScriptResult {
	path, err := c.Resolve(ctx)
	if err != nil {
		return payload.ScriptResult{ExitCode: -1, Error: fmt.Sprintf(notInstalledMsg, c.name)}
	}
	outcome := c.invoke(ctx, "run", path, args, onChunk)
	result := payload.FromOutcome(outcome)
	if err := result.Malformed(); err != nil {
		logging.WithContext(ctx, c.logger).Debug("frame tool printed no structured result",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
	}
	return result
}

// BatchCompress runs the compress subcommand. onLog receives every output
// chunk from both streams.
func (c *Client) BatchCompress(ctx context.Context, opts BatchCompressOptions, onLog func(LogEvent)) BatchCompressResult {
	counts, detail, err := c.batch(ctx, "batch_compress", opts.Validate, func() []string { return CompressArgs(opts) }, onLog, compressCounts)
	if err != nil {
		return BatchCompressResult{Message: compressFailed, Error: detail}
	}
	return BatchCompressResult{
		Success:      true,
		TotalFiles:   counts.Total,
		SuccessCount: counts.Succeeded,
		FailedCount:  counts.Failed,
		Message:      compressDone,
	}
}

// ExtractFirstFrames runs the dirfirst subcommand.
func (c *Client) ExtractFirstFrames(ctx context.Context, opts ExtractFirstFrameOptions, onLog func(LogEvent)) ExtractFirstFrameResult {
	counts, detail, err := c.batch(ctx, "extract_first_frames", opts.Validate, func() []string { return DirFirstArgs(opts) }, onLog, extractCounts)
	if err != nil {
		return ExtractFirstFrameResult{Message: extractFailed, Error: detail}
	}
	return ExtractFirstFrameResult{
		Success:      true,
		TotalVideos:  counts.Total,
		SuccessCount: counts.Succeeded,
		FailedCount:  counts.Failed,
		Message:      extractDone,
	}
}

// batch is the shared validate, resolve, invoke and count pipeline. On
// failure it returns the user-facing error detail alongside a classified
// error.
func (c *Client) batch(
	ctx context.Context,
	operation string,
	validate func() error,
	buildArgs func() []string,
	onLog func(LogEvent),
	count func(string) Counts,
) (Counts, string, error) {
	logger := logging.WithContext(ctx, c.logger)
	if err := validate(); err != nil {
		logging.WarnWithContext(logger, "options rejected", operation+"_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return Counts{}, validationDetail(err), err
	}
	path, err := c.Resolve(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "frame tool unavailable", operation+"_not_installed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return Counts{}, fmt.Sprintf(notInstalledMsg, c.name), err
	}

	outcome := c.invoke(ctx, operation, path, buildArgs(), func(chunk invoke.Chunk) {
		if onLog != nil {
			onLog(LogEvent{Type: "log", Message: chunk.Text})
		}
	})
	if failure := outcome.Failure("frametool", operation); failure != nil {
		detail := strings.TrimSpace(outcome.Stderr)
		switch {
		case outcome.SpawnFailed:
			detail = outcome.ErrorText()
		case outcome.TimedOut:
			detail = outcome.ErrorText()
		case detail == "":
			detail = "unknown error"
		}
		logging.ErrorWithContext(logger, operation+" failed", operation+"_failed",
			logging.Error(failure),
			logging.String(logging.FieldErrorHint, services.Hint(failure)),
		)
		return Counts{}, detail, failure
	}

	counts := count(outcome.Stdout)
	logger.Info(operation+" finished",
		logging.String(logging.FieldEventType, operation+"_finished"),
		countAttr("total", counts.Total),
		countAttr("succeeded", counts.Succeeded),
		countAttr("failed", counts.Failed),
	)
	return counts, "", nil
}

func (c *Client) invoke(ctx context.Context, operation, path string, args []string, onChunk func(invoke.Chunk)) invoke.Outcome {
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("running frame tool",
		logging.String(logging.FieldEventType, operation+"_started"),
		logging.String("path", path),
		logging.Strings("args", args),
	)
	var lines textutil.LineBuffer
	outcome := c.runner.Run(ctx, invoke.Spec{
		Path:    path,
		Args:    args,
		Timeout: c.runTimeout,
	}, func(chunk invoke.Chunk) {
		for _, line := range lines.Write(chunk.Text) {
			logger.Debug("frame tool output", logging.String("stream", string(chunk.Stream)), logging.String("line", line))
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	if rest := lines.Flush(); rest != "" {
		logger.Debug("frame tool output", logging.String("line", rest))
	}
	logger.Debug("frame tool exited",
		logging.String(logging.FieldInvocationID, outcome.ID),
		logging.Int("exit_code", outcome.ExitCode),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome
}

func countAttr(key string, value *int) logging.Attr {
	if value == nil {
		return logging.String(key, "unknown")
	}
	return logging.Int(key, *value)
}

func validationDetail(err error) string {
	if !errors.Is(err, services.ErrValidation) {
		return err.Error()
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
