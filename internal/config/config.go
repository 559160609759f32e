package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	ScriptsDir string `toml:"scripts_dir"`
}

// Tool describes the external frame tool and how it is discovered.
type Tool struct {
	Name                string   `toml:"name"`
	Candidates          []string `toml:"candidates"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
	RunTimeoutSeconds   int      `toml:"run_timeout_seconds"`
}

// Python describes interpreter discovery and script execution limits.
type Python struct {
	Candidates           []string `toml:"candidates"`
	MinVersion           string   `toml:"min_version"`
	ProbeTimeoutSeconds  int      `toml:"probe_timeout_seconds"`
	ScriptTimeoutSeconds int      `toml:"script_timeout_seconds"`
	IOEncoding           string   `toml:"io_encoding"`
}

// Install contains settings for the scripted tool installer.
type Install struct {
	ScriptURL             string `toml:"script_url"`
	Shell                 string `toml:"shell"`
	Curl                  string `toml:"curl"`
	PathEnv               string `toml:"path_env"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	VerifyAttempts        int    `toml:"verify_attempts"`
	VerifyIntervalSeconds int    `toml:"verify_interval_seconds"`
}

// History controls the operation journal.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Events sizes the in-memory event buffer served to UI clients.
type Events struct {
	Capacity int `toml:"capacity"`
}

// Notifications configures optional ntfy alerts for finished operations.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for framebridge.
//
// Configuration sections by subsystem:
//   - Paths: state, log and helper script directories
//   - Tool: frame-extractor candidates and time budgets
//   - Python: interpreter candidates, version floor and script budget
//   - Install: installer pipeline, PATH overlay and verification polling
//   - History: SQLite operation journal
//   - Events: event buffer capacity
//   - Notifications: ntfy topic for install and batch outcomes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tool          Tool          `toml:"tool"`
	Python        Python        `toml:"python"`
	Install       Install       `toml:"install"`
	History       History       `toml:"history"`
	Events        Events        `toml:"events"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framebridge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("framebridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "framebridge.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "framebridge.lock")
}

// InstallLockPath returns the lock guarding concurrent tool installs.
func (c *Config) InstallLockPath() string {
	return filepath.Join(c.Paths.StateDir, "install.lock")
}

// LogFilePath returns the log file appended to by the daemon and CLI.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "framebridge.log")
}

// HistoryPath returns the operation journal database path.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.StateDir, defaultHistoryFile)
}

// ToolProbeTimeout returns the per-candidate budget for tool version probes.
func (c *Config) ToolProbeTimeout() time.Duration {
	return seconds(c.Tool.ProbeTimeoutSeconds)
}

// ToolRunTimeout returns the budget for a single frame tool invocation.
func (c *Config) ToolRunTimeout() time.Duration {
	return seconds(c.Tool.RunTimeoutSeconds)
}

// PythonProbeTimeout returns the per-candidate budget for interpreter probes.
func (c *Config) PythonProbeTimeout() time.Duration {
	return seconds(c.Python.ProbeTimeoutSeconds)
}

// ScriptTimeout returns the budget for a single helper script run.
func (c *Config) ScriptTimeout() time.Duration {
	return seconds(c.Python.ScriptTimeoutSeconds)
}

// InstallTimeout returns the hard ceiling for the install pipeline.
func (c *Config) InstallTimeout() time.Duration {
	return seconds(c.Install.TimeoutSeconds)
}

// VerifyInterval returns the delay before each post-install verification probe.
func (c *Config) VerifyInterval() time.Duration {
	return seconds(c.Install.VerifyIntervalSeconds)
}

// InstallCommand returns the shell pipeline that downloads and runs the installer.
func (c *Config) InstallCommand() string {
	return fmt.Sprintf("%s -sSL %s | %s", c.Install.Curl, c.Install.ScriptURL, c.Install.Shell)
}

// InstalledToolPath returns the first absolute tool candidate, which is where
// the installer places the binary.
func (c *Config) InstalledToolPath() string {
	for _, candidate := range c.Tool.Candidates {
		if filepath.IsAbs(candidate) {
			return candidate
		}
	}
	if len(c.Tool.Candidates) > 0 {
		return c.Tool.Candidates[0]
	}
	return c.Tool.Name
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
