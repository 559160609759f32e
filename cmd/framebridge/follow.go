package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"framebridge/internal/events"
)

const followPoll = 500 * time.Millisecond

// followEvents prints events of the given kinds published after the call.
// The returned stop function drains what is left and waits for the printer.
func followEvents(ctx context.Context, b backend, out io.Writer, kinds ...events.Kind) func() {
	start, err := b.Events(ctx, 0, 0, 0)
	if err != nil {
		return func() {}
	}
	cursor := start.Next

	pollCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for pollCtx.Err() == nil {
			batch, err := b.Events(pollCtx, cursor, 100, followPoll)
			if err != nil {
				return
			}
			printEvents(out, batch.Events, kinds)
			cursor = batch.Next
		}
	}()

	return func() {
		cancel()
		wg.Wait()
		if batch, err := b.Events(ctx, cursor, 0, 0); err == nil {
			printEvents(out, batch.Events, kinds)
		}
	}
}

func printEvents(out io.Writer, evts []events.Event, kinds []events.Kind) {
	for _, evt := range evts {
		if len(kinds) > 0 && !slices.Contains(kinds, evt.Kind) {
			continue
		}
		fmt.Fprint(out, formatEvent(evt))
	}
}

func formatEvent(evt events.Event) string {
	if evt.Progress != nil {
		return fmt.Sprintf("progress: %.1f%%\n", *evt.Progress)
	}
	// Output chunks arrive as the process wrote them, line breaks included.
	return evt.Message
}
