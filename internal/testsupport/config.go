package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framebridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Candidate lists point inside the temp tree so the host's real tools are
// never probed unless a test adds them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ScriptsDir = filepath.Join(base, "scripts")
	cfgVal.Tool.Candidates = []string{filepath.Join(base, "bin", "frame-extractor")}
	cfgVal.Python.Candidates = []string{filepath.Join(base, "bin", "python3")}
	cfgVal.Install.VerifyAttempts = 3
	cfgVal.Install.VerifyIntervalSeconds = 0
	cfgVal.History.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.StateDir, cfgVal.Paths.LogDir, cfgVal.Paths.ScriptsDir, filepath.Join(base, "bin")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithHistory enables the operation journal inside the temp state dir.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithToolCandidates replaces the frame tool candidate list.
func WithToolCandidates(candidates ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tool.Candidates = candidates
	}
}

// WithPythonCandidates replaces the interpreter candidate list.
func WithPythonCandidates(candidates ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Python.Candidates = candidates
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, curl and bash are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"curl", "bash"}
		}
		binDir := filepath.Join(b.baseDir, "stub-bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// BinDir returns the directory the default candidates point into.
func BinDir(cfg *config.Config) string {
	return filepath.Join(BaseDir(cfg), "bin")
}
