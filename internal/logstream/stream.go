// Package logstream follows the framebridge log for the CLI, through the
// daemon's LogTail call when one is running or straight from the log file.
package logstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"framebridge/internal/ipc"
	"framebridge/internal/logs"
)

const defaultWait = time.Second

// TailClient captures the IPC log tail contract.
type TailClient interface {
	LogTail(ctx context.Context, req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Source returns one page of log lines.
type Source interface {
	Tail(ctx context.Context, opts logs.TailOptions) (logs.Page, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, opts logs.TailOptions) (logs.Page, error)

// Tail calls f.
func (f SourceFunc) Tail(ctx context.Context, opts logs.TailOptions) (logs.Page, error) {
	return f(ctx, opts)
}

// FromClient reads through the daemon.
func FromClient(client TailClient) Source {
	return SourceFunc(func(ctx context.Context, opts logs.TailOptions) (logs.Page, error) {
		resp, err := client.LogTail(ctx, ipc.LogTailRequest{
			Offset:     opts.Offset,
			Limit:      opts.Limit,
			Follow:     opts.Follow,
			WaitMillis: int(opts.Wait / time.Millisecond),
		})
		if err != nil {
			return logs.Page{}, err
		}
		if resp == nil {
			return logs.Page{}, errors.New("log tail response missing")
		}
		return logs.Page{Lines: resp.Lines, Offset: resp.Offset}, nil
	})
}

// FromFile reads path directly.
func FromFile(path string) Source {
	return SourceFunc(func(ctx context.Context, opts logs.TailOptions) (logs.Page, error) {
		return logs.Tail(ctx, path, opts)
	})
}

// Options controls stream behavior.
type Options struct {
	// Lines is how many trailing lines to print first; zero prints the whole file.
	Lines  int
	Follow bool
	// Wait bounds each follow poll; zero uses one second.
	Wait time.Duration
}

// Stream emits log lines from source. It returns true when at least one line
// was emitted. A canceled context ends a follow without error.
func Stream(ctx context.Context, source Source, opts Options, onLine func(string)) (bool, error) {
	offset := int64(-1)
	limit := max(opts.Lines, 0)
	if limit == 0 {
		offset = 0
	}
	wait := opts.Wait
	if wait <= 0 {
		wait = defaultWait
	}

	printed := false
	for first := true; ; first = false {
		req := logs.TailOptions{Offset: offset, Limit: limit}
		if !first {
			req.Follow, req.Wait = true, wait
		}
		page, err := source.Tail(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return printed, nil
			}
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range page.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = page.Offset
		limit = 0
		if !opts.Follow || ctx.Err() != nil {
			return printed, nil
		}
	}
}
