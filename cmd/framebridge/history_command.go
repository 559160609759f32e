package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/history"
	"framebridge/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var operation string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				runs, err := b.History(runCtx, operation, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No operations recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Started", "Operation", "Result", "Duration", "Message"},
					historyRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Only show one operation (for example batch_compress)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := "ok"
		message := run.Message
		if !run.Success {
			result = "failed"
			if run.Error != "" {
				message = run.Error
			}
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			textutil.Label(run.Operation),
			result,
			run.Duration().Round(time.Millisecond).String(),
			message,
		})
	}
	return rows
}
