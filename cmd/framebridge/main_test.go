//go:build unix

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"framebridge/internal/config"
	"framebridge/internal/daemon"
	"framebridge/internal/logging"
	"framebridge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T, withDaemon bool) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithHistory())
	bin := testsupport.BinDir(cfg)
	testsupport.WriteFakeTool(t, bin, "frame-extractor", "2.5.0", "echo 'Found 3 files'\necho 'Processed 3 files'\n")
	testsupport.WriteFakePython(t, bin, "python3", "3.12.1")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{cfg: cfg, socketPath: cfg.SocketPath(), configPath: configPath}
	if !withDaemon {
		return env
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	env.daemon = d
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--socket", e.socketPath, "--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestStatusViaDaemon(t *testing.T) {
	env := setupCLITestEnv(t, true)
	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"== Environment ==", "2.5.0", "3.12.1", "daemon (pid", "== Checks =="} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusLocalJSON(t *testing.T) {
	env := setupCLITestEnv(t, false)
	out, err := env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if report.Mode != "local" || !report.Tool.Installed || report.Tool.Version != "2.5.0" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCompressThenHistory(t *testing.T) {
	env := setupCLITestEnv(t, true)
	out, err := env.run(t, "compress", "/in", "/out", "-q", "80")
	if err != nil {
		t.Fatalf("compress: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Found 3 files") || !strings.Contains(out, "Files") {
		t.Fatalf("unexpected compress output:\n%s", out)
	}

	out, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "Batch Compress") || !strings.Contains(out, "ok") {
		t.Fatalf("unexpected history output:\n%s", out)
	}
}

func TestCompressLocalFailure(t *testing.T) {
	env := setupCLITestEnv(t, false)
	testsupport.WriteFakeTool(t, testsupport.BinDir(env.cfg), "frame-extractor", "2.5.0", "echo 'disk full' >&2\nexit 3\n")
	if _, err := env.run(t, "compress", "/in", "/out"); err == nil {
		t.Fatal("expected failing compress to return an error")
	}
}

func TestScriptRunPrintsStructuredData(t *testing.T) {
	env := setupCLITestEnv(t, false)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.ScriptsDir, "probe.py"),
		"echo 'PROGRESS:50'\necho '{\"success\": true, \"data\": {\"frames\": 7}}'\n")
	out, err := env.run(t, "script", "run", "probe.py")
	if err != nil {
		t.Fatalf("script run: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"frames": 7`) {
		t.Fatalf("expected structured data in output:\n%s", out)
	}
}

func TestJobsRun(t *testing.T) {
	env := setupCLITestEnv(t, true)
	manifest := filepath.Join(testsupport.BaseDir(env.cfg), "jobs.yaml")
	testsupport.WriteFile(t, manifest, "name: nightly\njobs:\n  - name: shrink\n    kind: compress\n    compress: {input_dir: /a, output_dir: /b}\n")

	out, err := env.run(t, "jobs", "validate", manifest)
	if err != nil || !strings.Contains(out, "nightly is valid (1 jobs)") {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	out, err = env.run(t, "jobs", "run", manifest)
	if err != nil {
		t.Fatalf("jobs run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "shrink") || !strings.Contains(out, "compress") {
		t.Fatalf("unexpected jobs output:\n%s", out)
	}
}

func TestEventsRequiresDaemon(t *testing.T) {
	env := setupCLITestEnv(t, false)
	_, err := env.run(t, "events")
	if err == nil || !strings.Contains(err.Error(), "framebridge start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}

func TestEventsAfterOperation(t *testing.T) {
	env := setupCLITestEnv(t, true)
	if _, err := env.run(t, "compress", "/in", "/out"); err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, err := env.run(t, "events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "compress_progress") || !strings.Contains(out, "operation_done") {
		t.Fatalf("unexpected events output:\n%s", out)
	}
}

func TestLogsLocal(t *testing.T) {
	env := setupCLITestEnv(t, false)
	testsupport.WriteFile(t, env.cfg.LogFilePath(), "one\ntwo\nthree\n")
	out, err := env.run(t, "--local", "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "framebridge", "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config written: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target, "--overwrite"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	backups, _ := filepath.Glob(target + ".*.bak")
	if len(backups) != 1 || !strings.Contains(out.String(), "Backed up existing configuration") {
		t.Fatalf("expected one backup, got %v\n%s", backups, out.String())
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	env := setupCLITestEnv(t, false)
	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, env.configPath) || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t, false)
	out, err := env.run(t, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "not running") {
		t.Fatalf("unexpected output %q", out)
	}
}
