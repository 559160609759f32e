package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framebridge/internal/ipc"
	"framebridge/internal/logstream"
)

const logFollowWait = 5 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the framebridge log",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, closeFn, err := ctx.logSource()
			if err != nil {
				return err
			}
			defer closeFn()
			out := cmd.OutOrStdout()
			_, err = logstream.Stream(commandCtx(cmd), source, logstream.Options{
				Lines:  lines,
				Follow: follow,
				Wait:   logFollowWait,
			}, func(line string) {
				fmt.Fprintln(out, line)
			})
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for the whole log)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}

// logSource reads through the daemon when it is reachable, otherwise straight
// from the configured log file.
func (c *commandContext) logSource() (logstream.Source, func(), error) {
	if !c.forceLocal() {
		client, err := ipc.Dial(c.socketPath())
		if err == nil {
			return logstream.FromClient(client), func() { _ = client.Close() }, nil
		}
		if !daemonAbsent(err) {
			return nil, nil, wrapDialError(err, c.socketPath())
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	return logstream.FromFile(cfg.LogFilePath()), func() {}, nil
}
