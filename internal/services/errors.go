package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSpawn           = errors.New("spawn failure")
	ErrNonZeroExit     = errors.New("non-zero exit")
	ErrTimeout         = errors.New("timeout")
	ErrMalformedOutput = errors.New("malformed output")
	ErrVersionTooLow   = errors.New("version too low")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrBusy            = errors.New("busy")
	ErrExternalTool    = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint maps a classified failure to a short next step suitable for the
// error_hint log field and user-facing messages.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "install the tool or add its location to the configured candidates"
	case errors.Is(err, ErrVersionTooLow):
		return "upgrade the interpreter to a supported version"
	case errors.Is(err, ErrTimeout):
		return "the process took too long; check the network connection or raise the timeout"
	case errors.Is(err, ErrSpawn):
		return "check that the executable exists and is executable"
	case errors.Is(err, ErrNonZeroExit):
		return "inspect stderr in the log for the tool's own error"
	case errors.Is(err, ErrMalformedOutput):
		return "the tool printed no structured result; check its version"
	case errors.Is(err, ErrValidation):
		return "check the request options"
	case errors.Is(err, ErrConfiguration):
		return "review the framebridge config file"
	case errors.Is(err, ErrBusy):
		return "wait for the running operation to finish"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
