// Package events buffers progress and output notifications for UI clients.
//
// Operations publish into a bounded ring; clients poll with the last
// sequence number they saw and may block until something new arrives.
// Subscriptions are therefore implicit: a client that stops polling simply
// stops receiving, and nothing accumulates on its behalf.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind names the notification channel an event belongs to.
type Kind string

const (
	InstallProgress  Kind = "install_progress"
	CompressProgress Kind = "compress_progress"
	ExtractProgress  Kind = "extract_progress"
	ScriptProgress   Kind = "script_progress"
	ToolOutput       Kind = "tool_output"
	OperationDone    Kind = "operation_done"
)

// Event is a single notification.
type Event struct {
	Sequence    uint64    `json:"seq"`
	Timestamp   time.Time `json:"ts"`
	Kind        Kind      `json:"kind"`
	OperationID string    `json:"operationId,omitempty"`
	// Type mirrors the {type, message} shape batch progress listeners expect.
	Type     string   `json:"type,omitempty"`
	Message  string   `json:"message,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
	Success  *bool    `json:"success,omitempty"`
}

// Hub stores recent events and wakes waiters when new events arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewHub constructs a bounded in-memory event buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends evt and returns it with its assigned sequence number.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	return evt
}

// Fetch returns events with sequence greater than since, at most limit of
// them, and the cursor to pass as since on the next call. When wait is true Fetch blocks until
// at least one event is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	if wait {
		stop := context.AfterFunc(ctx, func() {
			h.mu.Lock()
			h.cond.Broadcast()
			h.mu.Unlock()
		})
		defer stop()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.buffer) {
		limit = len(h.buffer)
	}
	out := make([]Event, limit)
	copy(out, h.buffer[len(h.buffer)-limit:])
	return out, h.nextSeq
}

// Latest reports the highest sequence number published so far.
func (h *Hub) Latest() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	start := len(h.buffer)
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	end := min(start+limit, len(h.buffer))
	if start >= end {
		return nil, h.nextSeq
	}
	out := make([]Event, end-start)
	copy(out, h.buffer[start:end])
	// A truncated page resumes after its last event.
	return out, out[len(out)-1].Sequence
}

// Log builds a {type:"log"} batch progress event.
func Log(kind Kind, operationID, message string) Event {
	return Event{Kind: kind, OperationID: operationID, Type: "log", Message: message}
}

// Percent builds a numeric progress event.
func Percent(kind Kind, operationID string, value float64) Event {
	return Event{Kind: kind, OperationID: operationID, Type: "progress", Progress: &value}
}

// Text builds a plain text event such as an installer output chunk.
func Text(kind Kind, operationID, message string) Event {
	return Event{Kind: kind, OperationID: operationID, Message: message}
}

// Done builds the terminal event for an operation.
func Done(operationID, message string, success bool) Event {
	return Event{Kind: OperationDone, OperationID: operationID, Type: "done", Message: message, Success: &success}
}
