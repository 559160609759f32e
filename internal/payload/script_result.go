package payload

import (
	"fmt"
	"strings"
	"time"

	"framebridge/internal/invoke"
	"framebridge/internal/services"
)

// ScriptResult is what a caller receives for a helper or tool run.
type ScriptResult struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	Structured bool   `json:"structured"`
}

// FromOutcome derives a ScriptResult. Success requires a zero exit and a
// payload whose success flag is not false.
func FromOutcome(o invoke.Outcome) ScriptResult {
	res := ScriptResult{
		Stdout:   o.Stdout,
		Stderr:   o.Stderr,
		ExitCode: o.ExitCode,
		TimedOut: o.TimedOut,
	}
	switch {
	case o.SpawnFailed:
		res.Error = fmt.Sprintf("failed to start %s: %s", displayName(o.Path), o.ErrorText())
		return res
	case o.Canceled:
		res.Error = "execution canceled"
		return res
	case o.TimedOut:
		res.Error = fmt.Sprintf("execution timed out after %s", o.Duration.Round(100*time.Millisecond))
		return res
	case !o.Succeeded():
		if stderr := strings.TrimSpace(o.Stderr); stderr != "" {
			res.Error = stderr
		} else if o.Exited {
			res.Error = fmt.Sprintf("exit code %d", o.ExitCode)
		} else {
			res.Error = o.ErrorText()
		}
		return res
	}

	p := Extract(o.Stdout)
	parsed := p.Result()
	res.Structured = p.Kind == Parsed
	res.Success = parsed.Success
	res.Data = parsed.Data
	res.Error = parsed.Error
	return res
}

// Malformed classifies a successful run whose stdout held no JSON object.
// The result still counts as success; the error only feeds logs.
func (r ScriptResult) Malformed() error {
	if !r.Success || r.Structured {
		return nil
	}
	return services.Wrap(services.ErrMalformedOutput, "payload", "extract", "no JSON object in stdout; using raw text", nil)
}

func displayName(path string) string {
	if path == "" {
		return "process"
	}
	return path
}
