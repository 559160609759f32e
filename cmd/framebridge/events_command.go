package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/events"
	"framebridge/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show progress and output events published by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				runCtx := commandCtx(cmd)
				out := cmd.OutOrStdout()
				batch, err := client.Events(runCtx, 0, 0, 0)
				if err != nil {
					return err
				}
				evts := batch.Events
				if limit > 0 && len(evts) > limit {
					evts = evts[len(evts)-limit:]
				}
				if err := printEventLines(cmd, evts, ctx.jsonOutput()); err != nil {
					return err
				}
				cursor := batch.Next
				for follow {
					batch, err := client.Events(runCtx, cursor, 100, 10*time.Second)
					if err != nil {
						if runCtx.Err() != nil {
							return nil
						}
						return err
					}
					if err := printEventLines(cmd, batch.Events, ctx.jsonOutput()); err != nil {
						return err
					}
					cursor = batch.Next
				}
				if len(evts) == 0 && !ctx.jsonOutput() {
					fmt.Fprintln(out, "No events")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of buffered events to show first")
	return cmd
}

func printEventLines(cmd *cobra.Command, evts []events.Event, asJSON bool) error {
	for _, evt := range evts {
		if asJSON {
			if err := writeJSON(cmd, evt); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), eventLine(evt))
	}
	return nil
}

func eventLine(evt events.Event) string {
	body := evt.Message
	switch {
	case evt.Progress != nil:
		body = fmt.Sprintf("%.1f%%", *evt.Progress)
	case evt.Success != nil:
		status := "ok"
		if !*evt.Success {
			status = "failed"
		}
		body = fmt.Sprintf("%s: %s", status, evt.Message)
	}
	op := evt.OperationID
	if len(op) > 8 {
		op = op[:8]
	}
	return fmt.Sprintf("%s #%d %-17s %s %s", evt.Timestamp.Local().Format(time.TimeOnly), evt.Sequence, evt.Kind, op, trimNewline(body))
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
