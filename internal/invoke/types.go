package invoke

import (
	"context"
	"fmt"
	"strings"
	"time"

	"framebridge/internal/services"
)

// Stream identifies which pipe a chunk was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Chunk is a piece of process output in the order the process wrote it.
// Ordering between stdout and stderr chunks is not defined.
type Chunk struct {
	Stream Stream
	Text   string
}

// Spec describes one invocation.
type Spec struct {
	Path string
	Args []string
	// Env is overlaid on the inherited environment; it never replaces it.
	Env map[string]string
	Dir string
	// Timeout of zero disables the timer; cancellation still applies.
	Timeout time.Duration
	// Stream enables delivery of chunks on Handle.Output. Callers that set it
	// must drain the channel until it closes.
	Stream bool
	// MaxCapture caps the bytes accumulated per stream. Zero is unlimited.
	MaxCapture int
}

// Outcome is the single resolution of an invocation.
type Outcome struct {
	ID       string
	Path     string
	ExitCode int
	// Exited is set when the process terminated on its own with ExitCode.
	Exited      bool
	Stdout      string
	Stderr      string
	TimedOut    bool
	Canceled    bool
	SpawnFailed bool
	Truncated   bool
	Err         error
	Duration    time.Duration
}

// Succeeded reports a normal exit with status zero.
func (o Outcome) Succeeded() bool {
	return o.Exited && o.ExitCode == 0 && !o.TimedOut && !o.SpawnFailed
}

// Failure classifies an unsuccessful outcome with a services marker. It
// returns nil for successful outcomes.
func (o Outcome) Failure(component, operation string) error {
	switch {
	case o.Succeeded():
		return nil
	case o.SpawnFailed:
		return services.Wrap(services.ErrSpawn, component, operation, "could not start "+o.Path, o.Err)
	case o.Canceled:
		return services.Wrap(services.ErrTimeout, component, operation, "canceled", o.Err)
	case o.TimedOut:
		return services.Wrap(services.ErrTimeout, component, operation, fmt.Sprintf("timed out after %s", o.Duration.Round(time.Millisecond)), nil)
	case o.Exited:
		return services.Wrap(services.ErrNonZeroExit, component, operation, fmt.Sprintf("exit code %d", o.ExitCode), nil)
	default:
		return services.Wrap(services.ErrNonZeroExit, component, operation, "terminated abnormally", o.Err)
	}
}

// ErrorText renders the failure for result values: captured stderr when the
// process produced any, otherwise a short description of what went wrong.
func (o Outcome) ErrorText() string {
	if o.Succeeded() {
		return ""
	}
	if o.SpawnFailed {
		if o.Err != nil {
			return o.Err.Error()
		}
		return "failed to start process"
	}
	if o.Canceled {
		return "canceled"
	}
	if o.TimedOut {
		return "timed out"
	}
	if stderr := strings.TrimSpace(o.Stderr); stderr != "" {
		return stderr
	}
	if o.Exited {
		return fmt.Sprintf("exit code %d", o.ExitCode)
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return "unknown error"
}

// Runner is the blocking form of an invocation. onChunk, when non-nil,
// receives every chunk before Run returns.
type Runner interface {
	Run(ctx context.Context, spec Spec, onChunk func(Chunk)) Outcome
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, spec Spec, onChunk func(Chunk)) Outcome

func (f RunnerFunc) Run(ctx context.Context, spec Spec, onChunk func(Chunk)) Outcome {
	return f(ctx, spec, onChunk)
}
