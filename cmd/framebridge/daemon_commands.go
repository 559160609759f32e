package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/daemonctl"
	"framebridge/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the framebridge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(commandCtx(cmd), ctx.socketPath(), exe, daemonLaunchOptions(ctx, logLevel), 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the framebridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopped, err := daemonctl.Stop(commandCtx(cmd), ctx.socketPath(), 10*time.Second)
			if err != nil {
				return err
			}
			if !stopped {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			return nil
		},
	}

	var foregroundLevel string
	var development bool
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the framebridge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			socket := ""
			if ctx.socketFlag != nil {
				socket = strings.TrimSpace(*ctx.socketFlag)
			}
			return daemonrun.Run(commandCtx(cmd), cfg, daemonrun.Options{
				LogLevel:    foregroundLevel,
				Development: development,
				SocketPath:  socket,
			})
		},
	}
	daemonCmd.Flags().StringVar(&foregroundLevel, "log-level", "", "Override the configured log level")
	daemonCmd.Flags().BoolVar(&development, "development", false, "Include source locations in log output")

	return []*cobra.Command{startCmd, stopCmd, daemonCmd}
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: logLevel}
	if ctx.socketFlag != nil {
		opts.SocketPath = strings.TrimSpace(*ctx.socketFlag)
	}
	opts.ConfigPath = ctx.configPath()
	return opts
}
