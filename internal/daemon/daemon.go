package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"framebridge/internal/bridge"
	"framebridge/internal/config"
	"framebridge/internal/history"
	"framebridge/internal/ipc"
	"framebridge/internal/logging"
	"framebridge/internal/preflight"
)

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogPath sets the log file served to LogTail clients.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// WithSocketPath overrides the configured socket location.
func WithSocketPath(path string) Option {
	return func(d *Daemon) {
		if path != "" {
			d.socketPath = path
		}
	}
}

// Daemon serves the bridge and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	logPath    string
	socketPath string

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	history  *history.Store
	service  *bridge.Service
	server   *ipc.Server
	running  atomic.Bool
	shutdown chan struct{}
	once     sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	SocketPath  string
	LockPath    string
	HistoryPath string
}

// New constructs a daemon. Nothing is acquired until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		logPath:    cfg.LogFilePath(),
		socketPath: cfg.SocketPath(),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
		shutdown:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, opens the journal and begins serving IPC.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another framebridge daemon instance is already running")
	}

	if err := d.startLocked(ctx); err != nil {
		d.releaseLocked()
		return err
	}

	d.running.Store(true)
	d.logger.Info("framebridge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("socket", d.socketPath),
		logging.Bool("history_enabled", d.history != nil),
	)
	d.logPreflight(ctx)
	return nil
}

func (d *Daemon) startLocked(ctx context.Context) error {
	opts := []bridge.Option{}
	if d.cfg.History.Enabled {
		store, err := history.Open(ctx, d.cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		d.history = store
		d.pruneHistory(ctx)
		opts = append(opts, bridge.WithHistory(store))
	}

	svc, err := bridge.New(d.cfg, d.logger, opts...)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	d.service = svc

	server, err := ipc.NewServer(ctx, d.socketPath, svc, d.logger,
		ipc.WithLogPath(d.logPath),
		ipc.WithShutdown(d.RequestShutdown),
	)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	d.server = server
	server.Serve()
	return nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	days := d.cfg.History.RetentionDays
	if days <= 0 {
		return
	}
	removed, err := d.history.Prune(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old runs remain in the journal"),
			logging.String(logging.FieldErrorHint, "check the history database permissions"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int("removed", int(removed)),
			logging.Int("retention_days", days),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, res := range preflight.RunAll(ctx, d.cfg) {
		if res.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", res.Name),
			logging.String("detail", res.Detail),
			logging.String(logging.FieldImpact, "operations depending on this check will fail"),
			logging.String(logging.FieldErrorHint, "run framebridge status for details"),
		)
	}
}

// Stop closes the IPC server and journal and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.releaseLocked()
	d.running.Store(false)
	d.logger.Info("framebridge daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) releaseLocked() {
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("failed to close history", logging.Error(err))
		}
		d.history = nil
	}
	d.service = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// RequestShutdown signals Done. It is safe to call more than once.
func (d *Daemon) RequestShutdown() {
	d.once.Do(func() { close(d.shutdown) })
}

// Done is closed once a shutdown has been requested over IPC.
func (d *Daemon) Done() <-chan struct{} {
	return d.shutdown
}

// Service returns the bridge served by a started daemon.
func (d *Daemon) Service() *bridge.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.service
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	st := Status{
		Running:    d.running.Load(),
		SocketPath: d.socketPath,
		LockPath:   d.lockPath,
	}
	if d.cfg.History.Enabled {
		st.HistoryPath = d.cfg.HistoryPath()
	}
	return st
}
