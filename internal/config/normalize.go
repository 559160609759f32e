package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTool()
	c.normalizePython()
	c.normalizeInstall()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("FRAMEBRIDGE_SCRIPTS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ScriptsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ScriptsDir) == "" {
		c.Paths.ScriptsDir = defaultScriptsDir()
	}
	if c.Paths.ScriptsDir, err = expandPath(c.Paths.ScriptsDir); err != nil {
		return fmt.Errorf("paths.scripts_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTool() {
	c.Tool.Name = strings.TrimSpace(c.Tool.Name)
	if c.Tool.Name == "" {
		c.Tool.Name = defaultToolName
	}
	c.Tool.Candidates = cleanCandidates(c.Tool.Candidates)
	if len(c.Tool.Candidates) == 0 {
		c.Tool.Candidates = append([]string(nil), defaultToolCandidates...)
	}
	if value, ok := os.LookupEnv("FRAMEBRIDGE_TOOL_PATH"); ok {
		c.Tool.Candidates = prependCandidate(c.Tool.Candidates, value)
	}
}

func (c *Config) normalizePython() {
	c.Python.Candidates = cleanCandidates(c.Python.Candidates)
	if len(c.Python.Candidates) == 0 {
		c.Python.Candidates = append([]string(nil), defaultPythonCandidates...)
	}
	if value, ok := os.LookupEnv("FRAMEBRIDGE_PYTHON"); ok {
		c.Python.Candidates = prependCandidate(c.Python.Candidates, value)
	}
	c.Python.MinVersion = strings.TrimSpace(c.Python.MinVersion)
	if c.Python.MinVersion == "" {
		c.Python.MinVersion = defaultPythonMinVersion
	}
	c.Python.IOEncoding = strings.TrimSpace(c.Python.IOEncoding)
}

func (c *Config) normalizeInstall() {
	c.Install.ScriptURL = strings.TrimSpace(c.Install.ScriptURL)
	c.Install.Shell = strings.TrimSpace(c.Install.Shell)
	if c.Install.Shell == "" {
		c.Install.Shell = defaultInstallShell
	}
	c.Install.Curl = strings.TrimSpace(c.Install.Curl)
	if c.Install.Curl == "" {
		c.Install.Curl = defaultInstallCurl
	}
	c.Install.PathEnv = strings.TrimSpace(c.Install.PathEnv)
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		return nil
	}
	expanded, err := expandPath(c.History.Path)
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func cleanCandidates(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func prependCandidate(values []string, candidate string) []string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return values
	}
	return cleanCandidates(append([]string{candidate}, values...))
}

// defaultScriptsDir prefers a scripts directory shipped next to the binary and
// falls back to one under the working directory.
func defaultScriptsDir() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "scripts")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return "scripts"
}
