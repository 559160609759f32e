// Package python discovers a usable interpreter and runs helper scripts
// through it.
package python

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"framebridge/internal/config"
	"framebridge/internal/invoke"
	"framebridge/internal/logging"
	"framebridge/internal/payload"
	"framebridge/internal/probe"
	"framebridge/internal/progress"
	"framebridge/internal/services"
)

// Starter launches invocations and hands back their handles.
type Starter interface {
	Start(ctx context.Context, spec invoke.Spec) *invoke.Handle
}

// InterpreterProber finds an interpreter meeting a version floor.
type InterpreterProber interface {
	ProbeInterpreter(ctx context.Context, candidates iter.Seq[string], floor probe.Version) probe.PythonEnvironment
}

// Option configures the runner.
type Option func(*Runner)

// WithStarter injects a custom process starter.
func WithStarter(starter Starter) Option {
	return func(r *Runner) {
		if starter != nil {
			r.starter = starter
		}
	}
}

// WithProber injects a custom interpreter prober.
func WithProber(prober InterpreterProber) Option {
	return func(r *Runner) {
		if prober != nil {
			r.prober = prober
		}
	}
}

// Runner executes helper scripts. At most one run is tracked for
// cancellation: a new Execute replaces the previous one. A run is tracked from
// the start of interpreter discovery, so a cancel that arrives before the
// process exists still stops it.
type Runner struct {
	candidates probe.Candidates
	floor      probe.Version
	scriptsDir string
	timeout    time.Duration
	encoding   string
	starter    Starter
	prober     InterpreterProber
	logger     *slog.Logger

	mu      sync.Mutex
	current *activeRun
}

// activeRun is a script run from interpreter discovery until resolution.
// handle is nil while the interpreter is still being probed.
type activeRun struct {
	cancel context.CancelFunc
	handle *invoke.Handle
}

// New constructs a Runner from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	major, minor, err := config.ParseMinVersion(cfg.Python.MinVersion)
	if err != nil {
		return nil, fmt.Errorf("python min_version: %w", err)
	}
	r := &Runner{
		candidates: probe.Candidates(cfg.Python.Candidates),
		floor:      probe.Version{Major: major, Minor: minor},
		scriptsDir: cfg.Paths.ScriptsDir,
		timeout:    cfg.ScriptTimeout(),
		encoding:   cfg.Python.IOEncoding,
		logger:     logging.NewComponentLogger(logger, "python"),
	}
	for _, opt := range opts {
		opt(r)
	}
	inv := invoke.New(logger)
	if r.starter == nil {
		r.starter = inv
	}
	if r.prober == nil {
		r.prober = probe.New(inv, cfg.PythonProbeTimeout(), logger)
	}
	return r, nil
}

// CheckEnvironment probes the interpreter candidates.
func (r *Runner) CheckEnvironment(ctx context.Context) probe.PythonEnvironment {
	return r.prober.ProbeInterpreter(ctx, r.candidates.All(), r.floor)
}

// ResolveScript maps a relative script path into the scripts directory.
func (r *Runner) ResolveScript(script string) string {
	if filepath.IsAbs(script) || r.scriptsDir == "" {
		return script
	}
	return filepath.Join(r.scriptsDir, script)
}

// Execute runs script with args. onProgress receives every progress value
// recognized on stdout.
func (r *Runner) Execute(ctx context.Context, script string, args []string, onProgress func(float64)) payload.ScriptResult {
	logger := logging.WithContext(ctx, r.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	run := &activeRun{cancel: cancel}
	r.track(run)
	defer r.release(run)

	env := r.CheckEnvironment(runCtx)
	if err := runCtx.Err(); err != nil {
		logger.Info("python script canceled before start", logging.Error(err))
		return payload.FromOutcome(invoke.Outcome{ExitCode: -1, TimedOut: true, Canceled: true, Err: err})
	}
	if !env.Available {
		logging.WarnWithContext(logger, "python unavailable", "python_unavailable",
			logging.String("reason", env.Error),
			logging.String(logging.FieldErrorHint, services.Hint(env.Err)),
		)
		return payload.ScriptResult{ExitCode: -1, Error: env.Error}
	}

	scriptPath := r.ResolveScript(script)
	spec := invoke.Spec{
		Path:    env.Path,
		Args:    append([]string{scriptPath}, args...),
		Timeout: r.timeout,
		Stream:  true,
	}
	if r.encoding != "" {
		spec.Env = map[string]string{"PYTHONIOENCODING": r.encoding}
	}

	logger.Info("running python script",
		logging.String(logging.FieldEventType, "script_started"),
		logging.String("interpreter", env.Path),
		logging.String("version", env.Version),
		logging.String("script", scriptPath),
		logging.Strings("args", args),
	)

	handle := r.starter.Start(runCtx, spec)
	r.mu.Lock()
	run.handle = handle
	r.mu.Unlock()

	sampler := logging.NewProgressSampler(5)
	extractor := progress.NewExtractor(func(value float64) {
		if sampler.ShouldLog(value) {
			logger.Debug("script progress", logging.Float64("percent", value))
		}
		if onProgress != nil {
			onProgress(value)
		}
	})
	for chunk := range handle.Output() {
		if chunk.Stream == invoke.Stdout {
			extractor.Feed(chunk.Text)
		}
	}
	outcome := handle.Wait()
	result := payload.FromOutcome(outcome)
	if err := result.Malformed(); err != nil {
		logger.Debug("script printed no structured result",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldInvocationID, outcome.ID),
		logging.Bool("success", result.Success),
		logging.Int("exit_code", outcome.ExitCode),
		logging.Duration("duration", outcome.Duration),
	}
	if result.Success {
		attrs = append(attrs, logging.String(logging.FieldEventType, "script_finished"))
		logger.Info("python script finished", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs, logging.String("error", result.Error))
		logging.WarnWithContext(logger, "python script failed", "script_failed", attrs...)
	}
	return result
}

// Cancel terminates the tracked script. It reports whether a running script
// was signalled; a run still discovering its interpreter counts as running
// and never starts its process.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	run := r.current
	var h *invoke.Handle
	if run != nil {
		h = run.handle
	}
	r.mu.Unlock()
	if run == nil {
		return false
	}
	if h == nil {
		run.cancel()
		r.logger.Info("python script cancel requested before start")
		return true
	}
	canceled := h.Cancel()
	if canceled {
		r.logger.Info("python script cancel requested", logging.String(logging.FieldInvocationID, h.ID()))
	}
	return canceled
}

// Running reports whether the tracked script is still running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return false
	}
	return r.current.handle == nil || r.current.handle.Running()
}

func (r *Runner) track(run *activeRun) {
	r.mu.Lock()
	r.current = run
	r.mu.Unlock()
}

func (r *Runner) release(run *activeRun) {
	r.mu.Lock()
	if r.current == run {
		r.current = nil
	}
	r.mu.Unlock()
}
