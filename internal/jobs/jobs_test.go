package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"framebridge/internal/jobs"
	"framebridge/internal/services"
	"framebridge/internal/services/frametool"
	"framebridge/internal/testsupport"
)

const sampleManifest = `
name: weekly
jobs:
  - name: shrink-photos
    kind: compress
    compress:
      input_dir: /photos
      output_dir: /photos-small
      recursive: true
      quality: 80
  - name: posters
    kind: extract
    extract:
      input_dir: /videos
      output_dir: /posters
      compress: true
      webp_quality: 70
      min_size: 1.5
`

func TestLoadManifest(t *testing.T) {
	m, err := jobs.Load([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "weekly" || len(m.Jobs) != 2 {
		t.Fatalf("unexpected manifest %+v", m)
	}
	c := m.Jobs[0].Compress
	if c == nil || c.InputDir != "/photos" || !c.Recursive || c.Quality == nil || *c.Quality != 80 {
		t.Fatalf("unexpected compress options %+v", c)
	}
	e := m.Jobs[1].Extract
	if e == nil || !e.Compress || e.WebPQuality == nil || *e.WebPQuality != 70 || e.MinSize == nil || *e.MinSize != 1.5 {
		t.Fatalf("unexpected extract options %+v", e)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	testsupport.WriteFile(t, path, sampleManifest)
	if _, err := jobs.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := jobs.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "jobs:\n  - name: a\n    kind: compress\n    compress: {input_dir: a, output_dir: b}\n", "name"},
		{"no jobs", "name: x\njobs: []\n", "jobs"},
		{"bad kind", "name: x\njobs:\n  - name: a\n    kind: resize\n", "oneof"},
		{"missing options", "name: x\njobs:\n  - name: a\n    kind: extract\n", "extract options are required"},
		{"mismatched options", "name: x\njobs:\n  - name: a\n    kind: compress\n    compress: {input_dir: a, output_dir: b}\n    extract: {input_dir: a, output_dir: b}\n", "not allowed"},
		{"missing dir", "name: x\njobs:\n  - name: a\n    kind: compress\n    compress: {input_dir: a}\n", "output_dir"},
		{"bad job name", "name: x\njobs:\n  - name: 'has space'\n    kind: compress\n    compress: {input_dir: a, output_dir: b}\n", "job_name"},
		{"duplicate", "name: x\njobs:\n  - name: a\n    kind: compress\n    compress: {input_dir: a, output_dir: b}\n  - name: a\n    kind: compress\n    compress: {input_dir: a, output_dir: b}\n", "duplicate"},
		{"bad yaml", "name: [\n", "invalid YAML"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jobs.Load([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

type fakeExecutor struct {
	compress []frametool.BatchCompressOptions
	extract  []frametool.ExtractFirstFrameOptions
	fail     bool
	err      error
}

func (f *fakeExecutor) BatchCompress(_ context.Context, opts frametool.BatchCompressOptions) (frametool.BatchCompressResult, error) {
	f.compress = append(f.compress, opts)
	if f.err != nil {
		return frametool.BatchCompressResult{}, f.err
	}
	if f.fail {
		return frametool.BatchCompressResult{Message: "batch compress failed", Error: "boom"}, nil
	}
	total := 4
	return frametool.BatchCompressResult{Success: true, TotalFiles: &total, Message: "batch compress complete"}, nil
}

func (f *fakeExecutor) ExtractFirstFrames(_ context.Context, opts frametool.ExtractFirstFrameOptions) (frametool.ExtractFirstFrameResult, error) {
	f.extract = append(f.extract, opts)
	return frametool.ExtractFirstFrameResult{Success: true, Message: "first-frame extraction complete"}, nil
}

func TestRunInOrder(t *testing.T) {
	m, err := jobs.Load([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	exec := &fakeExecutor{}
	var seen []string
	summary, err := jobs.Run(context.Background(), m, exec, nil, func(r jobs.Result) { seen = append(seen, r.Job) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.OK() || summary.Succeeded != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(seen) != 2 || seen[0] != "shrink-photos" || seen[1] != "posters" {
		t.Fatalf("unexpected order %v", seen)
	}
	if summary.Results[0].Total == nil || *summary.Results[0].Total != 4 {
		t.Fatalf("expected totals carried over, got %+v", summary.Results[0])
	}
	if len(exec.compress) != 1 || exec.compress[0].OutputDir != "/photos-small" {
		t.Fatalf("unexpected compress calls %+v", exec.compress)
	}
}

func TestRunStopsAfterFailure(t *testing.T) {
	m, _ := jobs.Load([]byte(sampleManifest))
	exec := &fakeExecutor{fail: true}
	summary, err := jobs.Run(context.Background(), m, exec, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Skipped != 1 || summary.OK() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(exec.extract) != 0 {
		t.Fatal("extract job should have been skipped")
	}

	m.ContinueOnError = true
	exec = &fakeExecutor{fail: true}
	summary, _ = jobs.Run(context.Background(), m, exec, nil, nil)
	if summary.Failed != 1 || summary.Succeeded != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected continue-on-error summary %+v", summary)
	}
}

func TestRunPropagatesTransportErrors(t *testing.T) {
	m, _ := jobs.Load([]byte(sampleManifest))
	_, err := jobs.Run(context.Background(), m, &fakeExecutor{err: errors.New("socket closed")}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "shrink-photos") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}
