package probe_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"framebridge/internal/invoke"
	"framebridge/internal/probe"
	"framebridge/internal/services"
	"framebridge/internal/testsupport"
)

type spyRunner struct {
	outcomes map[string]invoke.Outcome
	calls    []string
	specs    []invoke.Spec
}

func (s *spyRunner) Run(_ context.Context, spec invoke.Spec, _ func(invoke.Chunk)) invoke.Outcome {
	s.calls = append(s.calls, spec.Path)
	s.specs = append(s.specs, spec)
	if o, ok := s.outcomes[spec.Path]; ok {
		return o
	}
	return invoke.Outcome{Path: spec.Path, ExitCode: -1, SpawnFailed: true}
}

func exited(code int, stdout string) invoke.Outcome {
	return invoke.Outcome{Exited: true, ExitCode: code, Stdout: stdout}
}

func TestProbeStopsAtFirstInstalledCandidate(t *testing.T) {
	spy := &spyRunner{outcomes: map[string]invoke.Outcome{
		"/a/frame-extractor": exited(1, ""),
		"/b/frame-extractor": exited(0, "frame-extractor version 1.4.2\n"),
		"frame-extractor":    exited(0, "frame-extractor version 9.9.9\n"),
	}}
	p := probe.New(spy, time.Second, nil)

	candidates := probe.Candidates{"/missing/frame-extractor", "/a/frame-extractor", "/b/frame-extractor", "frame-extractor"}
	status := p.Probe(context.Background(), "frame-extractor", candidates.All())

	if !status.Installed || status.Version != "1.4.2" || status.Path != "/b/frame-extractor" {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(spy.calls) != 3 {
		t.Fatalf("expected 3 invocations before short-circuit, got %v", spy.calls)
	}
	for _, spec := range spy.specs {
		if len(spec.Args) != 1 || spec.Args[0] != "--version" || spec.Timeout != time.Second {
			t.Fatalf("unexpected probe spec %+v", spec)
		}
	}
}

func TestProbeAllFail(t *testing.T) {
	spy := &spyRunner{outcomes: map[string]invoke.Outcome{
		"slow": {TimedOut: true, ExitCode: -1},
	}}
	p := probe.New(spy, 0, nil)
	status := p.Probe(context.Background(), "frame-extractor", probe.Candidates{"missing", "slow"}.All())
	if status.Installed {
		t.Fatal("expected not installed")
	}
	if status.Error != "frame-extractor not found" {
		t.Fatalf("unexpected error %q", status.Error)
	}
	if len(spy.calls) != 2 {
		t.Fatalf("expected every candidate tried once, got %v", spy.calls)
	}
}

func TestProbeVersionFromStderrAndMissingVersion(t *testing.T) {
	spy := &spyRunner{outcomes: map[string]invoke.Outcome{
		"stderr-tool": {Exited: true, Stderr: "tool 2.0.1"},
		"quiet-tool":  exited(0, "ok"),
	}}
	p := probe.New(spy, 0, nil)

	status := p.Probe(context.Background(), "tool", probe.Candidates{"stderr-tool"}.All())
	if status.Version != "2.0.1" {
		t.Fatalf("expected version from stderr, got %+v", status)
	}
	status = p.Probe(context.Background(), "tool", probe.Candidates{"quiet-tool"}.All())
	if !status.Installed || status.Version != "" {
		t.Fatalf("expected installed without version, got %+v", status)
	}
}

func TestProbeInterpreterFloor(t *testing.T) {
	floor := probe.Version{Major: 3, Minor: 8}
	tests := []struct {
		name      string
		output    string
		available bool
	}{
		{"too old", "Python 3.7.0", false},
		{"exact floor", "Python 3.8.0", true},
		{"newer minor", "Python 3.12.1", true},
		{"python 2", "Python 2.7.18", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spy := &spyRunner{outcomes: map[string]invoke.Outcome{"python3": exited(0, tc.output)}}
			env := probe.New(spy, 0, nil).ProbeInterpreter(context.Background(), probe.Candidates{"python3"}.All(), floor)
			if env.Available != tc.available {
				t.Fatalf("available = %v, want %v (%+v)", env.Available, tc.available, env)
			}
			if !env.Available && !strings.Contains(env.Error, "too low") {
				t.Fatalf("expected version-too-low message, got %q", env.Error)
			}
			if !env.Available && !errors.Is(env.Err, services.ErrVersionTooLow) {
				t.Fatalf("expected version marker, got %v", env.Err)
			}
			if env.Available && env.Err != nil {
				t.Fatalf("available interpreter carries error %v", env.Err)
			}
			if env.Version == "" {
				t.Fatal("expected version to be reported")
			}
		})
	}
}

func TestProbeInterpreterSkipsTooOldCandidate(t *testing.T) {
	spy := &spyRunner{outcomes: map[string]invoke.Outcome{
		"/usr/local/bin/python3": exited(0, "Python 3.6.9"),
		"python3":                exited(0, "Python 3.11.4"),
		"python":                 exited(0, "Python 3.12.0"),
	}}
	env := probe.New(spy, 0, nil).ProbeInterpreter(context.Background(),
		probe.Candidates{"/usr/local/bin/python3", "python3", "python"}.All(), probe.Version{Major: 3, Minor: 8})
	if !env.Available || env.Path != "python3" || env.Version != "3.11.4" {
		t.Fatalf("unexpected environment %+v", env)
	}
	if len(spy.calls) != 2 {
		t.Fatalf("expected walk to stop at python3, got %v", spy.calls)
	}
}

func TestProbeInterpreterNotFound(t *testing.T) {
	env := probe.New(&spyRunner{}, 0, nil).ProbeInterpreter(context.Background(), probe.Candidates{"python3"}.All(), probe.Version{Major: 3, Minor: 8})
	if env.Available || !strings.Contains(env.Error, "not found") {
		t.Fatalf("unexpected environment %+v", env)
	}
	if !errors.Is(env.Err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", env.Err)
	}
}

func TestProbeInterpreterReadsStderr(t *testing.T) {
	spy := &spyRunner{outcomes: map[string]invoke.Outcome{"python": {Exited: true, Stderr: "Python 3.9.1\n"}}}
	env := probe.New(spy, 0, nil).ProbeInterpreter(context.Background(), probe.Candidates{"python"}.All(), probe.Version{Major: 3, Minor: 8})
	if !env.Available || env.Version != "3.9.1" {
		t.Fatalf("unexpected environment %+v", env)
	}
}

func TestCandidatesExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var got []string
	for c := range (probe.Candidates{"~/.local/bin/frame-extractor", " ", "$HOME/bin/x", "frame-extractor"}).All() {
		got = append(got, c)
	}
	want := []string{filepath.Join(home, ".local", "bin", "frame-extractor"), filepath.Join(home, "bin", "x"), "frame-extractor"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestProbeRealExecutables(t *testing.T) {
	dir := t.TempDir()
	broken := testsupport.WriteScript(t, dir, "broken", "exit 1\n")
	tool := testsupport.WriteFakeTool(t, dir, "frame-extractor", "0.3.1", "exit 0\n")

	p := probe.New(invoke.New(nil), 2*time.Second, nil)
	status := p.Probe(context.Background(), "frame-extractor", probe.Candidates{filepath.Join(dir, "absent"), broken, tool}.All())
	if !status.Installed || status.Version != "0.3.1" || status.Path != tool {
		t.Fatalf("unexpected status %+v", status)
	}
}
