package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run manifests of compress and extract jobs",
	}

	var continueOnError bool
	runCmd := &cobra.Command{
		Use:   "run <manifest.yaml>",
		Short: "Run every job in a manifest in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := jobs.LoadFile(args[0])
			if err != nil {
				return err
			}
			if continueOnError {
				manifest.ContinueOnError = true
			}
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				out := cmd.OutOrStdout()
				var onResult func(jobs.Result)
				if !ctx.jsonOutput() {
					onResult = func(res jobs.Result) {
						fmt.Fprintf(out, "%-24s %s\n", res.Job, jobOutcome(res))
					}
				}
				summary, err := jobs.Run(runCtx, manifest, b, nil, onResult)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, summary); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out)
					fmt.Fprint(out, renderTable(
						[]string{"Job", "Kind", "Result", "Total", "Failed", "Duration"},
						jobRows(summary.Results),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
					))
				}
				if !summary.OK() {
					return fmt.Errorf("manifest %s: %d failed, %d skipped", summary.Manifest, summary.Failed, summary.Skipped)
				}
				return nil
			})
		},
	}
	runCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep running after a job fails")

	validateCmd := &cobra.Command{
		Use:         "validate <manifest.yaml>",
		Short:       "Check a manifest without running it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := jobs.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Manifest %s is valid (%d jobs)\n", manifest.Name, len(manifest.Jobs))
			return nil
		},
	}

	jobsCmd.AddCommand(runCmd, validateCmd)
	return jobsCmd
}

func jobOutcome(res jobs.Result) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.Success:
		return "ok"
	case res.Error != "":
		return "failed: " + res.Error
	default:
		return "failed"
	}
}

func jobRows(results []jobs.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		outcome := "ok"
		if res.Skipped {
			outcome = "skipped"
		} else if !res.Success {
			outcome = "failed"
		}
		rows = append(rows, []string{
			res.Job,
			string(res.Kind),
			outcome,
			countText(res.Total),
			countText(res.Failed),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	return rows
}
