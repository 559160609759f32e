package config

const (
	defaultStateDir              = "~/.local/share/framebridge"
	defaultLogDir                = "~/.local/share/framebridge/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultToolName              = "frame-extractor"
	defaultProbeTimeoutSeconds   = 5
	defaultToolRunTimeoutSeconds = 3600
	defaultScriptTimeoutSeconds  = 1800
	defaultPythonMinVersion      = "3.8"
	defaultPythonIOEncoding      = "utf-8"
	defaultInstallScriptURL      = "https://raw.githubusercontent.com/indulgeback/video-frame-extractor/main/install.sh"
	defaultInstallShell          = "/bin/bash"
	defaultInstallCurl           = "/usr/bin/curl"
	defaultInstallPathEnv        = "/usr/bin:/bin:/usr/local/bin:/opt/homebrew/bin"
	defaultInstallTimeoutSeconds = 120
	defaultVerifyAttempts        = 10
	defaultVerifyIntervalSeconds = 1
	defaultEventCapacity         = 512
	defaultHistoryFile           = "history.db"
	defaultHistoryRetentionDays  = 90
	defaultNotifyTimeoutSeconds  = 10
)

// Absolute and user-local locations come before bare command names so a
// freshly installed copy wins over whatever happens to be on PATH.
var (
	defaultToolCandidates = []string{
		"~/.local/bin/frame-extractor",
		"frame-extractor",
	}
	defaultPythonCandidates = []string{
		"/opt/homebrew/bin/python3",
		"/opt/homebrew/bin/python",
		"/usr/local/bin/python3",
		"/usr/local/bin/python",
		"~/.pyenv/shims/python3",
		"~/.pyenv/shims/python",
		"~/.local/bin/python3",
		"~/.local/bin/python",
		"python3",
		"python",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Tool: Tool{
			Name:                defaultToolName,
			Candidates:          append([]string(nil), defaultToolCandidates...),
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			RunTimeoutSeconds:   defaultToolRunTimeoutSeconds,
		},
		Python: Python{
			Candidates:           append([]string(nil), defaultPythonCandidates...),
			MinVersion:           defaultPythonMinVersion,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			ScriptTimeoutSeconds: defaultScriptTimeoutSeconds,
			IOEncoding:           defaultPythonIOEncoding,
		},
		Install: Install{
			ScriptURL:             defaultInstallScriptURL,
			Shell:                 defaultInstallShell,
			Curl:                  defaultInstallCurl,
			PathEnv:               defaultInstallPathEnv,
			TimeoutSeconds:        defaultInstallTimeoutSeconds,
			VerifyAttempts:        defaultVerifyAttempts,
			VerifyIntervalSeconds: defaultVerifyIntervalSeconds,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Events: Events{
			Capacity: defaultEventCapacity,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
