package invoke

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/google/uuid"

	"framebridge/internal/logging"
)

const (
	defaultKillGrace = 2 * time.Second
	defaultWaitDelay = 2 * time.Second
)

// Invoker starts external processes. The zero value is usable.
type Invoker struct {
	Logger *slog.Logger
	// KillGrace is how long a terminated process group gets before SIGKILL.
	KillGrace time.Duration
	// WaitDelay bounds how long Wait keeps reading pipes held open by
	// grandchildren after the child exits.
	WaitDelay time.Duration
}

// New returns an Invoker logging through logger.
func New(logger *slog.Logger) *Invoker {
	return &Invoker{Logger: logging.NewComponentLogger(logger, "invoke")}
}

// Start launches spec and returns its handle. It never fails: a process that
// cannot be started yields a handle already resolved with SpawnFailed.
func (inv *Invoker) Start(ctx context.Context, spec Spec) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	h := newHandle(uuid.NewString(), spec)
	logger := inv.logger(ctx).With(
		logging.String(logging.FieldInvocationID, h.id),
		logging.String("command", spec.Path),
	)

	if spec.Path == "" {
		h.resolve(Outcome{ExitCode: -1, SpawnFailed: true, Err: errors.New("no executable specified")})
		return h
	}
	if err := ctx.Err(); err != nil {
		logger.Debug("process canceled before start", logging.Error(err))
		h.resolve(Outcome{ExitCode: -1, TimedOut: true, Canceled: true, Err: err})
		return h
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stdout = streamWriter{h: h, stream: Stdout}
	cmd.Stderr = streamWriter{h: h, stream: Stderr}
	cmd.WaitDelay = inv.waitDelay()
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		logger.Debug("process spawn failed", logging.Error(err))
		h.resolve(Outcome{ExitCode: -1, SpawnFailed: true, Err: err})
		return h
	}
	h.pid = cmd.Process.Pid
	logger.Debug("process started",
		logging.Int("pid", h.pid),
		logging.Strings("args", spec.Args),
		logging.Duration("timeout", spec.Timeout),
	)

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	go inv.supervise(ctx, h, cmd, exited, logger)
	return h
}

// Run starts spec and blocks until it resolves, passing every chunk to
// onChunk when it is non-nil.
func (inv *Invoker) Run(ctx context.Context, spec Spec, onChunk func(Chunk)) Outcome {
	spec.Stream = onChunk != nil
	h := inv.Start(ctx, spec)
	for chunk := range h.Output() {
		onChunk(chunk)
	}
	return h.Wait()
}

func (inv *Invoker) supervise(ctx context.Context, h *Handle, cmd *exec.Cmd, exited <-chan error, logger *slog.Logger) {
	var timer <-chan time.Time
	if h.spec.Timeout > 0 {
		t := time.NewTimer(h.spec.Timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-exited:
		h.resolve(exitOutcome(cmd, err))
		logger.Debug("process exited", logging.Int("exit_code", h.outcome.ExitCode), logging.Duration("duration", h.outcome.Duration))
		return
	case <-timer:
		h.resolve(inv.terminate(cmd, Outcome{ExitCode: -1, TimedOut: true}, logger))
		logger.Debug("process timed out", logging.Duration("timeout", h.spec.Timeout))
	case <-h.cancelCh:
		h.resolve(inv.terminate(cmd, Outcome{ExitCode: -1, TimedOut: true, Canceled: true}, logger))
		logger.Debug("process canceled")
	case <-ctx.Done():
		h.resolve(inv.terminate(cmd, Outcome{ExitCode: -1, TimedOut: true, Canceled: true, Err: ctx.Err()}, logger))
		logger.Debug("process canceled by context", logging.Error(ctx.Err()))
	}

	grace := time.NewTimer(inv.killGrace())
	defer grace.Stop()
	select {
	case <-exited:
	case <-grace.C:
		if err := killProcess(cmd); err != nil {
			logger.Debug("process kill failed", logging.Error(err))
		}
		<-exited
	}
}

// terminate sends the polite signal and hands back the outcome to resolve
// with; escalation is left to the caller.
func (inv *Invoker) terminate(cmd *exec.Cmd, o Outcome, logger *slog.Logger) Outcome {
	if err := interruptProcess(cmd); err != nil {
		logger.Debug("process interrupt failed", logging.Error(err))
	}
	return o
}

func exitOutcome(cmd *exec.Cmd, err error) Outcome {
	o := Outcome{ExitCode: -1}
	if state := cmd.ProcessState; state != nil {
		o.ExitCode = state.ExitCode()
		o.Exited = state.Exited()
	}
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return o
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && o.Exited {
		return o
	}
	o.Err = err
	return o
}

func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, key := range keys {
		env = append(env, key+"="+overlay[key])
	}
	return env
}

func (inv *Invoker) logger(ctx context.Context) *slog.Logger {
	var base *slog.Logger
	if inv != nil {
		base = inv.Logger
	}
	return logging.WithContext(ctx, base)
}

func (inv *Invoker) killGrace() time.Duration {
	if inv == nil || inv.KillGrace <= 0 {
		return defaultKillGrace
	}
	return inv.KillGrace
}

func (inv *Invoker) waitDelay() time.Duration {
	if inv == nil || inv.WaitDelay <= 0 {
		return defaultWaitDelay
	}
	return inv.WaitDelay
}
