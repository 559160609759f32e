package invoke

import (
	"strings"
	"sync"
	"time"
)

// Handle owns one running invocation.
type Handle struct {
	id      string
	spec    Spec
	started time.Time

	cancelOnce sync.Once
	cancelCh   chan struct{}

	resolveOnce sync.Once
	done        chan struct{}
	outcome     Outcome

	pid int

	mu       sync.Mutex
	cond     *sync.Cond
	stdout   capture
	stderr   capture
	pending  []Chunk
	resolved bool
	out      chan Chunk
}

func newHandle(id string, spec Spec) *Handle {
	h := &Handle{
		id:       id,
		spec:     spec,
		started:  time.Now(),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
		out:      make(chan Chunk, 16),
		stdout:   capture{limit: spec.MaxCapture},
		stderr:   capture{limit: spec.MaxCapture},
	}
	h.cond = sync.NewCond(&h.mu)
	if spec.Stream {
		go h.forward()
	} else {
		close(h.out)
	}
	return h
}

// ID returns the invocation identifier.
func (h *Handle) ID() string { return h.id }

// PID returns the child process id, or zero when the spawn failed.
func (h *Handle) PID() int { return h.pid }

// Output returns the chunk channel. It is closed once the invocation resolves
// and every chunk captured before resolution has been delivered. Without
// Spec.Stream the channel is already closed.
func (h *Handle) Output() <-chan Chunk { return h.out }

// Done is closed when the invocation resolves.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Running reports whether the invocation has not resolved yet.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Cancel terminates the invocation. The outcome resolves as timed out and
// canceled. It reports false when the invocation had already resolved.
func (h *Handle) Cancel() bool {
	if !h.Running() {
		return false
	}
	h.cancelOnce.Do(func() { close(h.cancelCh) })
	return true
}

// Wait blocks until the invocation resolves and returns its outcome.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

func (h *Handle) write(stream Stream, p []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	text := string(p)
	if stream == Stderr {
		h.stderr.write(text)
	} else {
		h.stdout.write(text)
	}
	if h.spec.Stream {
		h.pending = append(h.pending, Chunk{Stream: stream, Text: text})
		h.cond.Broadcast()
	}
}

// forward moves pending chunks to the output channel so a slow consumer never
// blocks the pipe readers.
func (h *Handle) forward() {
	for {
		h.mu.Lock()
		for len(h.pending) == 0 && !h.resolved {
			h.cond.Wait()
		}
		if len(h.pending) == 0 {
			h.mu.Unlock()
			close(h.out)
			return
		}
		chunk := h.pending[0]
		h.pending[0] = Chunk{}
		h.pending = h.pending[1:]
		h.mu.Unlock()
		h.out <- chunk
	}
}

func (h *Handle) resolve(o Outcome) {
	h.resolveOnce.Do(func() {
		h.mu.Lock()
		o.ID = h.id
		o.Path = h.spec.Path
		o.Duration = time.Since(h.started)
		o.Stdout = h.stdout.String()
		o.Stderr = h.stderr.String()
		o.Truncated = h.stdout.truncated || h.stderr.truncated
		h.outcome = o
		h.resolved = true
		h.cond.Broadcast()
		h.mu.Unlock()
		close(h.done)
	})
}

// capture accumulates output up to limit bytes, then discards the rest.
type capture struct {
	buf       strings.Builder
	limit     int
	truncated bool
}

func (c *capture) write(text string) {
	if c.limit <= 0 {
		c.buf.WriteString(text)
		return
	}
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return
	}
	if len(text) > remaining {
		c.buf.WriteString(text[:remaining])
		c.truncated = true
		return
	}
	c.buf.WriteString(text)
}

func (c *capture) String() string { return c.buf.String() }

type streamWriter struct {
	h      *Handle
	stream Stream
}

func (w streamWriter) Write(p []byte) (int, error) {
	w.h.write(w.stream, p)
	return len(p), nil
}
