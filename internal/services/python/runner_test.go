//go:build unix

package python_test

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"framebridge/internal/invoke"
	"framebridge/internal/probe"
	"framebridge/internal/services"
	"framebridge/internal/services/python"
	"framebridge/internal/testsupport"
)

func newRunner(t *testing.T, version string) (*python.Runner, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	interp := testsupport.WriteFakePython(t, testsupport.BinDir(cfg), "python3", version)
	cfg.Python.Candidates = []string{filepath.Join(testsupport.BaseDir(cfg), "missing", "python3"), interp}
	r, err := python.New(cfg, nil)
	if err != nil {
		t.Fatalf("python.New: %v", err)
	}
	return r, cfg.Paths.ScriptsDir
}

func TestCheckEnvironment(t *testing.T) {
	r, _ := newRunner(t, "3.11.2")
	env := r.CheckEnvironment(context.Background())
	if !env.Available || env.Version != "3.11.2" {
		t.Fatalf("unexpected environment %+v", env)
	}

	old, _ := newRunner(t, "3.7.0")
	env = old.CheckEnvironment(context.Background())
	if env.Available || !strings.Contains(env.Error, "too low") {
		t.Fatalf("expected version floor rejection, got %+v", env)
	}
	if !errors.Is(env.Err, services.ErrVersionTooLow) {
		t.Fatalf("expected version marker, got %v", env.Err)
	}
}

func TestExecuteReportsProgressAndPayload(t *testing.T) {
	r, scripts := newRunner(t, "3.10.0")
	testsupport.WriteFile(t, filepath.Join(scripts, "extract.py"), `echo 'PROGRESS:10'
echo '{"progress": 55.5}'
echo "encoding=$PYTHONIOENCODING arg=$1"
echo '{"success": true, "data": {"frames": 3}}'
`)

	var mu sync.Mutex
	var values []float64
	res := r.Execute(context.Background(), "extract.py", []string{"clip.mp4"}, func(v float64) {
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
	})

	if !res.Success || !res.Structured {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Stdout, "encoding=utf-8 arg=clip.mp4") {
		t.Fatalf("expected env overlay and args, got %q", res.Stdout)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(values) == 0 || values[len(values)-1] != 55.5 {
		t.Fatalf("unexpected progress values %v", values)
	}
}

func TestExecuteUnavailableInterpreter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	r, err := python.New(cfg, nil)
	if err != nil {
		t.Fatalf("python.New: %v", err)
	}
	res := r.Execute(context.Background(), "any.py", nil, nil)
	if res.Success || !strings.Contains(res.Error, "not found") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecuteFailureUsesStderr(t *testing.T) {
	r, scripts := newRunner(t, "3.9.0")
	testsupport.WriteFile(t, filepath.Join(scripts, "fail.py"), "echo 'ValueError: bad clip' >&2\nexit 1\n")
	res := r.Execute(context.Background(), "fail.py", nil, nil)
	if res.Success || res.Error != "ValueError: bad clip" || res.ExitCode != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCancelTerminatesRunningScript(t *testing.T) {
	r, scripts := newRunner(t, "3.12.0")
	testsupport.WriteFile(t, filepath.Join(scripts, "slow.py"), "echo started\nsleep 10\n")

	if r.Cancel() {
		t.Fatal("cancel without a running script must report false")
	}

	done := make(chan struct{})
	var res struct {
		success bool
		err     string
	}
	go func() {
		defer close(done)
		out := r.Execute(context.Background(), "slow.py", nil, nil)
		res.success, res.err = out.Success, out.Error
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !r.Running() {
		if time.Now().After(deadline) {
			t.Fatal("script never started")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !r.Cancel() {
		t.Fatal("expected cancel to signal the running script")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after cancel")
	}
	if res.success || res.err != "execution canceled" {
		t.Fatalf("unexpected canceled result %+v", res)
	}
	if r.Running() {
		t.Fatal("runner still reports a running script")
	}
}

// blockingProber holds interpreter discovery open until its context ends.
type blockingProber struct {
	entered chan struct{}
}

func (p *blockingProber) ProbeInterpreter(ctx context.Context, _ iter.Seq[string], _ probe.Version) probe.PythonEnvironment {
	close(p.entered)
	<-ctx.Done()
	return probe.PythonEnvironment{Error: "Python not found"}
}

type countingStarter struct {
	starts atomic.Int32
	inner  *invoke.Invoker
}

func (s *countingStarter) Start(ctx context.Context, spec invoke.Spec) *invoke.Handle {
	s.starts.Add(1)
	return s.inner.Start(ctx, spec)
}

func TestCancelDuringInterpreterDiscovery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	prober := &blockingProber{entered: make(chan struct{})}
	starter := &countingStarter{inner: invoke.New(nil)}
	r, err := python.New(cfg, nil, python.WithProber(prober), python.WithStarter(starter))
	if err != nil {
		t.Fatalf("python.New: %v", err)
	}

	done := make(chan struct{})
	var errText string
	go func() {
		defer close(done)
		errText = r.Execute(context.Background(), "slow.py", nil, nil).Error
	}()

	select {
	case <-prober.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("interpreter discovery never started")
	}
	if !r.Running() {
		t.Fatal("run should be tracked while the interpreter is probed")
	}
	if !r.Cancel() {
		t.Fatal("expected cancel to stop the pending run")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after cancel")
	}
	if errText != "execution canceled" {
		t.Fatalf("unexpected error %q", errText)
	}
	if n := starter.starts.Load(); n != 0 {
		t.Fatalf("script process started %d times after cancel", n)
	}
	if r.Running() || r.Cancel() {
		t.Fatal("runner still tracks the canceled run")
	}
}

func TestResolveScript(t *testing.T) {
	r, scripts := newRunner(t, "3.8.0")
	if got := r.ResolveScript("a/b.py"); got != filepath.Join(scripts, "a", "b.py") {
		t.Fatalf("unexpected relative resolution %q", got)
	}
	if got := r.ResolveScript("/abs/c.py"); got != "/abs/c.py" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
