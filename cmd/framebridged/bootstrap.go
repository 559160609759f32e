package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"framebridge/internal/config"
	"framebridge/internal/daemonrun"
)

type options struct {
	configPath string
	run        daemonrun.Options
}

// parseOptions reads flags, falling back to FRAMEBRIDGE_CONFIG and
// FRAMEBRIDGE_LOG_LEVEL so unit files can stay flag-free.
func parseOptions(args []string, getenv func(string) string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("framebridged", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", strings.TrimSpace(getenv("FRAMEBRIDGE_CONFIG")), "configuration file path")
	fs.StringVar(&opts.run.SocketPath, "socket", "", "override the IPC socket path")
	fs.StringVar(&opts.run.LogLevel, "log-level", strings.TrimSpace(getenv("FRAMEBRIDGE_LOG_LEVEL")), "override the configured log level")
	fs.BoolVar(&opts.run.Development, "development", false, "include source locations in logs")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(ctx, cfg, opts.run)
}
