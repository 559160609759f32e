package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/events"
	"framebridge/internal/ipc"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:   "script",
		Short: "Run and cancel Python helper scripts",
	}
	scriptCmd.AddCommand(newScriptRunCommand(ctx))
	scriptCmd.AddCommand(newScriptCancelCommand(ctx))
	return scriptCmd
}

func newScriptRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run a helper script from the scripts directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(runCtx context.Context, b backend) error {
				out := cmd.OutOrStdout()
				signals := make(chan os.Signal, 1)
				signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(signals)

				// Interrupts cancel the script rather than abandoning it.
				done := make(chan struct{})
				defer close(done)
				go func() {
					select {
					case <-signals:
						cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), 5*time.Second)
						defer cancel()
						if res, err := b.CancelScript(cancelCtx); err == nil && res.Canceled {
							fmt.Fprintln(cmd.ErrOrStderr(), "script canceled")
						}
					case <-done:
					}
				}()

				stop := ctx.follow(runCtx, b, out, events.ScriptProgress)
				res, err := b.RunScript(runCtx, args[0], args[1:])
				stop()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				if res.Structured && res.Data != nil {
					return writeJSON(cmd, res.Data)
				}
				if stdout := strings.TrimSpace(res.Stdout); stdout != "" {
					fmt.Fprintln(out, stdout)
				}
				if !res.Success {
					return fmt.Errorf("script failed: %s", res.Error)
				}
				return nil
			})
		},
	}
}

func newScriptCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the script the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				res, err := client.CancelScript(commandCtx(cmd))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				if res.Canceled {
					fmt.Fprintln(cmd.OutOrStdout(), "Script canceled")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No script is running")
				}
				return nil
			})
		},
	}
}
