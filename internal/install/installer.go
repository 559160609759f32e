// Package install drives the scripted installation of the frame tool and
// verifies that the freshly installed binary answers.
//
// The workflow is a small state machine:
//
//	Idle -> Installing -> Verifying -> Verified
//	                   |            -> VerifyTimedOut
//	                   -> InstallFailed
//
// Installing runs the download-and-install shell pipeline under a hard time
// ceiling, forwarding cleaned output as it arrives. Verifying polls the
// install location a bounded number of times. A pipeline that exits zero is
// reported as success even when verification never sees the binary, since
// shells and file systems may need a moment before the tool is visible.
package install

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"framebridge/internal/config"
	"framebridge/internal/deps"
	"framebridge/internal/invoke"
	"framebridge/internal/logging"
	"framebridge/internal/probe"
	"framebridge/internal/services"
	"framebridge/internal/textutil"
)

// State is a point in the install workflow.
type State string

const (
	Idle           State = "idle"
	Installing     State = "installing"
	Verifying      State = "verifying"
	Verified       State = "verified"
	VerifyTimedOut State = "verify_timed_out"
	InstallFailed  State = "install_failed"
)

// Terminal reports whether s ends the workflow.
func (s State) Terminal() bool {
	return s == Verified || s == VerifyTimedOut || s == InstallFailed
}

const timeoutHint = "install took too long; check the network connection and retry"

// Result is the outcome of one install attempt.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	State   State  `json:"state"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Prober is the subset of probe.Prober the installer needs.
type Prober interface {
	Probe(ctx context.Context, name string, candidates iter.Seq[string]) probe.ToolStatus
}

// Options configures an Installer.
type Options struct {
	ToolName       string
	Shell          string
	Command        string
	PathEnv        string
	Timeout        time.Duration
	VerifyAttempts int
	VerifyInterval time.Duration
	VerifyPath     string
	LockPath       string
	Requirements   []deps.Requirement
}

// OptionsFromConfig derives installer options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ToolName:       cfg.Tool.Name,
		Shell:          cfg.Install.Shell,
		Command:        cfg.InstallCommand(),
		PathEnv:        cfg.Install.PathEnv,
		Timeout:        cfg.InstallTimeout(),
		VerifyAttempts: cfg.Install.VerifyAttempts,
		VerifyInterval: cfg.VerifyInterval(),
		VerifyPath:     cfg.InstalledToolPath(),
		LockPath:       cfg.InstallLockPath(),
		Requirements:   deps.InstallRequirements(cfg),
	}
}

// Installer runs install attempts. It is safe for concurrent use; attempts
// are serialized in-process and across processes through the lock file.
type Installer struct {
	opts   Options
	runner invoke.Runner
	prober Prober
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error

	mu    sync.Mutex
	state State
}

// New constructs an Installer.
func New(opts Options, runner invoke.Runner, prober Prober, logger *slog.Logger) *Installer {
	if opts.ToolName == "" {
		opts.ToolName = "frame-extractor"
	}
	if opts.VerifyAttempts <= 0 {
		opts.VerifyAttempts = 1
	}
	return &Installer{
		opts:   opts,
		runner: runner,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "installer"),
		sleep:  sleepContext,
		state:  Idle,
	}
}

// State returns the current workflow state.
func (i *Installer) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Installer) transition(logger *slog.Logger, next State) {
	i.mu.Lock()
	prev := i.state
	i.state = next
	i.mu.Unlock()
	logger.Debug("install state changed", logging.String("from", string(prev)), logging.String("to", string(next)))
}

// Install runs one attempt. onOutput receives every chunk of cleaned
// installer output while the pipeline runs.
func (i *Installer) Install(ctx context.Context, onOutput func(string)) Result {
	logger := logging.WithContext(ctx, i.logger)

	var lock *flock.Flock
	if i.opts.LockPath != "" {
		lock = flock.New(i.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return i.fail(logger, "install failed", fmt.Sprintf("acquire install lock: %v", err), services.ErrConfiguration)
		}
		if !locked {
			return i.fail(logger, "install failed", "another install is already running", services.ErrBusy)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Debug("release install lock failed", logging.Error(err))
			}
		}()
	}

	if missing := deps.Missing(deps.CheckBinaries(i.opts.Requirements)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Command))
		}
		return i.fail(logger, "install failed", "missing prerequisites: "+strings.Join(names, ", "), services.ErrNotFound)
	}

	i.transition(logger, Installing)
	logger.Info("tool install started",
		logging.String(logging.FieldEventType, "install_started"),
		logging.String("tool", i.opts.ToolName),
		logging.Duration("timeout", i.opts.Timeout),
	)

	var lines textutil.LineBuffer
	spec := invoke.Spec{
		Path:    i.opts.Shell,
		Args:    []string{"-c", i.opts.Command},
		Timeout: i.opts.Timeout,
	}
	if i.opts.PathEnv != "" {
		spec.Env = map[string]string{"PATH": i.opts.PathEnv}
	}
	outcome := i.runner.Run(ctx, spec, func(chunk invoke.Chunk) {
		text := textutil.CleanTerminalOutput(chunk.Text)
		if text == "" {
			return
		}
		if onOutput != nil {
			onOutput(text)
		}
		for _, line := range lines.Write(text) {
			logger.Debug("installer output", logging.String("stream", string(chunk.Stream)), logging.String("line", line))
		}
	})
	if rest := lines.Flush(); rest != "" {
		logger.Debug("installer output", logging.String("line", rest))
	}

	switch {
	case outcome.Canceled:
		return i.fail(logger, "install canceled", "install canceled before completion", services.ErrTimeout)
	case outcome.TimedOut:
		return i.fail(logger, "install timed out", timeoutHint, services.ErrTimeout)
	case outcome.SpawnFailed:
		return i.fail(logger, "install failed", outcome.ErrorText(), services.ErrSpawn)
	case !outcome.Succeeded():
		detail := strings.TrimSpace(textutil.CleanTerminalOutput(outcome.Stderr))
		if detail == "" {
			detail = "unknown error"
		}
		return i.fail(logger, "install failed", detail, services.ErrNonZeroExit)
	}

	return i.verify(ctx, logger)
}

func (i *Installer) verify(ctx context.Context, logger *slog.Logger) Result {
	i.transition(logger, Verifying)
	candidates := probe.Candidates{i.opts.VerifyPath}
	for attempt := 1; attempt <= i.opts.VerifyAttempts; attempt++ {
		if err := i.sleep(ctx, i.opts.VerifyInterval); err != nil {
			break
		}
		status := i.prober.Probe(ctx, i.opts.ToolName, candidates.All())
		if status.Installed {
			i.transition(logger, Verified)
			logger.Info("tool install verified",
				logging.String(logging.FieldEventType, "install_verified"),
				logging.Int("attempt", attempt),
				logging.String("version", status.Version),
				logging.String("path", status.Path),
			)
			return Result{
				Success: true,
				Message: fmt.Sprintf("%s installed successfully", i.opts.ToolName),
				State:   Verified,
				Version: status.Version,
				Path:    status.Path,
			}
		}
		logger.Debug("tool not visible yet", logging.Int("attempt", attempt), logging.String("path", i.opts.VerifyPath))
	}

	i.transition(logger, VerifyTimedOut)
	logging.WarnWithContext(logger, "install finished but tool not detected", "install_verify_timeout",
		logging.String("path", i.opts.VerifyPath),
		logging.Int("attempts", i.opts.VerifyAttempts),
		logging.String(logging.FieldErrorHint, "refresh tool status; a new shell may be needed"),
		logging.String(logging.FieldImpact, "status may show the tool as missing until refreshed"),
	)
	return Result{
		Success: true,
		Message: "installation finished; refresh and retry detection",
		State:   VerifyTimedOut,
		Path:    i.opts.VerifyPath,
	}
}

func (i *Installer) fail(logger *slog.Logger, message, detail string, marker error) Result {
	i.transition(logger, InstallFailed)
	err := services.Wrap(marker, "installer", "install", detail, nil)
	logging.ErrorWithContext(logger, message, "install_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
	)
	return Result{Success: false, Message: message, Error: detail, State: InstallFailed}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
