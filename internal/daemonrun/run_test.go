package daemonrun

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "framebridge-1.log")
	second := filepath.Join(dir, "framebridge-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	current := filepath.Join(dir, "framebridge.log")

	if err := ensureCurrentLogPointer(current, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(current, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "framebridge-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framebridge.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) < 2 || data[len(data)-1] != '\n' {
		t.Fatalf("unexpected pid file %q, %v", data, err)
	}
}
