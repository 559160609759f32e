//go:build unix

package frametool_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"framebridge/internal/services/frametool"
	"framebridge/internal/testsupport"
)

func newClient(t *testing.T, body string) (*frametool.Client, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	tool := testsupport.WriteFakeTool(t, testsupport.BinDir(cfg), "frame-extractor", "1.2.0", body)
	cfg.Tool.Candidates = []string{filepath.Join(testsupport.BaseDir(cfg), "missing", "frame-extractor"), tool}
	return frametool.New(cfg, nil), tool
}

type logSink struct {
	mu     sync.Mutex
	events []frametool.LogEvent
}

func (s *logSink) add(evt frametool.LogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *logSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, evt := range s.events {
		if evt.Type != "log" {
			return "unexpected type " + evt.Type
		}
		b.WriteString(evt.Message)
	}
	return b.String()
}

func TestStatusResolvesInstalledCandidate(t *testing.T) {
	client, tool := newClient(t, "exit 0\n")
	status := client.Status(context.Background())
	if !status.Installed || status.Version != "1.2.0" || status.Path != tool {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestBatchCompressSuccess(t *testing.T) {
	client, _ := newClient(t, `echo "args: $*"
echo "Found 3 files"
echo "working" >&2
`)
	sink := &logSink{}
	res := client.BatchCompress(context.Background(), frametool.BatchCompressOptions{
		InputDir:  "/in",
		OutputDir: "/out",
		Recursive: true,
	}, sink.add)

	if !res.Success || res.Message != "batch compress complete" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.TotalFiles == nil || *res.TotalFiles != 3 || res.SuccessCount == nil || *res.SuccessCount != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	logs := sink.text()
	if !strings.Contains(logs, "args: compress -i /in -o /out -r") {
		t.Fatalf("expected built args in output, got %q", logs)
	}
	if !strings.Contains(logs, "working") {
		t.Fatalf("expected stderr chunks forwarded, got %q", logs)
	}
}

func TestBatchCompressFailureUsesStderr(t *testing.T) {
	client, _ := newClient(t, "echo 'input dir missing' >&2\nexit 2\n")
	res := client.BatchCompress(context.Background(), frametool.BatchCompressOptions{InputDir: "/in", OutputDir: "/out"}, nil)
	if res.Success || res.Message != "batch compress failed" || res.Error != "input dir missing" {
		t.Fatalf("unexpected result %+v", res)
	}

	client, _ = newClient(t, "exit 2\n")
	res = client.BatchCompress(context.Background(), frametool.BatchCompressOptions{InputDir: "/in", OutputDir: "/out"}, nil)
	if res.Error != "unknown error" {
		t.Fatalf("expected unknown error, got %+v", res)
	}
}

func TestBatchCompressValidation(t *testing.T) {
	client, _ := newClient(t, "echo should-not-run\n")
	sink := &logSink{}
	res := client.BatchCompress(context.Background(), frametool.BatchCompressOptions{InputDir: "/in"}, sink.add)
	if res.Success || !strings.Contains(res.Error, "outputDir") {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if sink.text() != "" {
		t.Fatal("tool must not run when validation fails")
	}
}

func TestExtractFirstFramesNotInstalled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := frametool.New(cfg, nil)
	res := client.ExtractFirstFrames(context.Background(), frametool.ExtractFirstFrameOptions{InputDir: "/in", OutputDir: "/out"}, nil)
	if res.Success || res.Message != "first-frame extraction failed" || !strings.Contains(res.Error, "not installed") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractFirstFramesCounts(t *testing.T) {
	client, _ := newClient(t, "echo 'Found 4 videos'\necho 'ERROR: clip.mov unreadable'\n")
	res := client.ExtractFirstFrames(context.Background(), frametool.ExtractFirstFrameOptions{InputDir: "/in", OutputDir: "/out", Compress: true}, nil)
	if !res.Success || res.TotalVideos == nil || *res.TotalVideos != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.SuccessCount != nil || res.FailedCount == nil || *res.FailedCount != 0 {
		t.Fatalf("expected unknown success count when output mentions errors, got %+v", res)
	}
}

func TestRunParsesPayload(t *testing.T) {
	client, _ := newClient(t, "echo 'log line'\necho '{\"success\": true, \"data\": {\"frames\": 2}}'\n")
	res := client.Run(context.Background(), []string{"info"}, nil)
	if !res.Success || !res.Structured {
		t.Fatalf("unexpected result %+v", res)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["frames"] == nil {
		t.Fatalf("unexpected data %v", res.Data)
	}
}
