// Package probe discovers which executable in an ordered candidate list is
// usable on this host.
//
// Candidates are tried one at a time, left to right, each with its own short
// time budget. The walk stops at the first candidate that answers --version
// with exit status zero; later candidates are never started. Nothing is
// cached: every call probes again.
package probe

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"framebridge/internal/invoke"
	"framebridge/internal/logging"
	"framebridge/internal/services"
)

// DefaultTimeout is the per-candidate probe budget.
const DefaultTimeout = 5 * time.Second

// ToolStatus describes whether a tool is installed.
type ToolStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PythonEnvironment describes the usable interpreter, if any.
type PythonEnvironment struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
	// Err classifies an unavailable environment with ErrNotFound or
	// ErrVersionTooLow. It does not cross the IPC boundary.
	Err error `json:"-"`
}

// Prober runs version probes through an invoke.Runner.
type Prober struct {
	runner  invoke.Runner
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Prober. A zero timeout selects DefaultTimeout.
func New(runner invoke.Runner, timeout time.Duration, logger *slog.Logger) *Prober {
	if runner == nil {
		runner = invoke.New(logger)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		runner:  runner,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "probe"),
	}
}

// Probe walks candidates and reports the first installed one. name is used
// in the not-found message.
func (p *Prober) Probe(ctx context.Context, name string, candidates iter.Seq[string]) ToolStatus {
	logger := logging.WithContext(ctx, p.logger)
	tried := 0
	for candidate := range candidates {
		tried++
		outcome := p.version(ctx, candidate)
		if !outcome.Succeeded() {
			logger.Debug("candidate rejected",
				logging.String("candidate", candidate),
				logging.String("reason", rejectReason(outcome)),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		status := ToolStatus{Installed: true, Path: candidate}
		text := outcome.Stdout
		if strings.TrimSpace(text) == "" {
			text = outcome.Stderr
		}
		if v, ok := FindVersion(text); ok {
			status.Version = v.String()
		}
		logger.Debug("tool resolved",
			logging.String("tool", name),
			logging.String("path", candidate),
			logging.String("version", status.Version),
			logging.Int("candidates_tried", tried),
		)
		return status
	}
	logger.Debug("tool not found", logging.String("tool", name), logging.Int("candidates_tried", tried))
	return ToolStatus{Error: fmt.Sprintf("%s not found", name)}
}

// ProbeInterpreter walks candidates looking for a Python interpreter at or
// above floor (major.minor). A too-old interpreter does not end the walk; if
// nothing acceptable turns up, the last too-old one is reported.
func (p *Prober) ProbeInterpreter(ctx context.Context, candidates iter.Seq[string], floor Version) PythonEnvironment {
	logger := logging.WithContext(ctx, p.logger)
	var tooOld *PythonEnvironment
	for candidate := range candidates {
		outcome := p.version(ctx, candidate)
		if !outcome.Succeeded() {
			logger.Debug("interpreter rejected",
				logging.String("candidate", candidate),
				logging.String("reason", rejectReason(outcome)),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		v, ok := FindPythonVersion(outcome.Stdout + "\n" + outcome.Stderr)
		if !ok {
			logger.Debug("interpreter version unreadable; accepting", logging.String("candidate", candidate))
			return PythonEnvironment{Available: true, Path: candidate}
		}
		if !v.AtLeast(floor) {
			logger.Debug("interpreter too old",
				logging.String("candidate", candidate),
				logging.String("version", v.String()),
				logging.String("required", fmt.Sprintf("%d.%d", floor.Major, floor.Minor)),
			)
			message := fmt.Sprintf("Python version too low: %s found, %d.%d or newer required", v, floor.Major, floor.Minor)
			tooOld = &PythonEnvironment{
				Version: v.String(),
				Path:    candidate,
				Error:   message,
				Err:     services.Wrap(services.ErrVersionTooLow, "probe", "interpreter", message, nil),
			}
			continue
		}
		logger.Debug("interpreter resolved", logging.String("path", candidate), logging.String("version", v.String()))
		return PythonEnvironment{Available: true, Version: v.String(), Path: candidate}
	}
	if tooOld != nil {
		return *tooOld
	}
	message := "Python not found; install Python 3 or add it to the configured candidates"
	return PythonEnvironment{
		Error: message,
		Err:   services.Wrap(services.ErrNotFound, "probe", "interpreter", message, nil),
	}
}

func (p *Prober) version(ctx context.Context, candidate string) invoke.Outcome {
	return p.runner.Run(ctx, invoke.Spec{
		Path:       candidate,
		Args:       []string{"--version"},
		Timeout:    p.timeout,
		MaxCapture: 64 * 1024,
	}, nil)
}

func rejectReason(o invoke.Outcome) string {
	switch {
	case o.SpawnFailed:
		return "not found"
	case o.Canceled:
		return "canceled"
	case o.TimedOut:
		return "timed out"
	case o.Exited:
		return fmt.Sprintf("exit code %d", o.ExitCode)
	default:
		return "terminated abnormally"
	}
}
