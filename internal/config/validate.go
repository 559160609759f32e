package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTool(); err != nil {
		return err
	}
	if err := c.validatePython(); err != nil {
		return err
	}
	if err := c.validateInstall(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must not be negative")
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTool() error {
	if len(c.Tool.Candidates) == 0 {
		return errors.New("tool.candidates must list at least one executable")
	}
	if c.Tool.ProbeTimeoutSeconds <= 0 {
		return errors.New("tool.probe_timeout_seconds must be positive")
	}
	if c.Tool.RunTimeoutSeconds <= 0 {
		return errors.New("tool.run_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePython() error {
	if len(c.Python.Candidates) == 0 {
		return errors.New("python.candidates must list at least one interpreter")
	}
	if _, _, err := ParseMinVersion(c.Python.MinVersion); err != nil {
		return fmt.Errorf("python.min_version: %w", err)
	}
	if c.Python.ProbeTimeoutSeconds <= 0 {
		return errors.New("python.probe_timeout_seconds must be positive")
	}
	if c.Python.ScriptTimeoutSeconds <= 0 {
		return errors.New("python.script_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateInstall() error {
	parsed, err := url.Parse(c.Install.ScriptURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("install.script_url must be an absolute URL, got %q", c.Install.ScriptURL)
	}
	if c.Install.TimeoutSeconds <= 0 {
		return errors.New("install.timeout_seconds must be positive")
	}
	if c.Install.VerifyAttempts <= 0 {
		return errors.New("install.verify_attempts must be positive")
	}
	if c.Install.VerifyIntervalSeconds < 0 {
		return errors.New("install.verify_interval_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Capacity <= 0 {
		return errors.New("events.capacity must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if topic := c.Notifications.NtfyTopic; topic != "" {
		parsed, err := url.Parse(topic)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("notifications.ntfy_topic must be a full topic URL, got %q", topic)
		}
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

// ParseMinVersion parses a "major.minor" version floor.
func ParseMinVersion(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("expected major.minor, got %q", value)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, fmt.Errorf("invalid major version in %q", value)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return 0, 0, fmt.Errorf("invalid minor version in %q", value)
	}
	return major, minor, nil
}
