// Package daemonrun is the process runtime behind `framebridge daemon`: it
// sets up logging, the pid file and signal handling around a daemon.Daemon.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"framebridge/internal/config"
	"framebridge/internal/daemon"
	"framebridge/internal/deps"
	"framebridge/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	SocketPath  string
}

// Run starts the daemon and blocks until a signal or a Shutdown request.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("framebridge-%s.log", runID))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogFilePath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", filepath.Base(cfg.LogFilePath()), err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "framebridge-*.log", logPath)
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, "framebridge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger,
		daemon.WithLogPath(cfg.LogFilePath()),
		daemon.WithSocketPath(opts.SocketPath),
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory and stop any other framebridge daemon"),
			logging.String(logging.FieldImpact, "UI clients cannot reach the bridge"),
		)
		return err
	}
	defer d.Close()

	select {
	case <-signalCtx.Done():
	case <-d.Done():
	}
	logger.Info("framebridge daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// ensureCurrentLogPointer points current at target, preferring a symlink.
func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Strings("tool_candidates", cfg.Tool.Candidates),
		logging.Strings("python_candidates", cfg.Python.Candidates),
		logging.String("python_min_version", cfg.Python.MinVersion),
	}
	for _, status := range deps.CheckBinaries(deps.InstallRequirements(cfg)) {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
