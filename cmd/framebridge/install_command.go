package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"framebridge/internal/events"
	"framebridge/internal/install"
	"framebridge/internal/textutil"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install frame-extractor with the scripted installer and verify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				out := cmd.OutOrStdout()
				stop := ctx.follow(runCtx, b, out, events.InstallProgress)
				res, err := b.InstallTool(runCtx)
				stop()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(out, "State: %s\n", textutil.Label(string(res.State)))
				if res.Version != "" {
					fmt.Fprintf(out, "Version: %s (%s)\n", res.Version, res.Path)
				}
				fmt.Fprintln(out, res.Message)
				if !res.Success {
					return fmt.Errorf("install failed: %s", res.Error)
				}
				if res.State == install.VerifyTimedOut {
					fmt.Fprintln(out, "Run `framebridge status` in a moment to confirm detection.")
				}
				return nil
			})
		},
	}
}
