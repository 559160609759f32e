package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path. body is everything after the shebang line.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// WriteFakeTool writes a frame tool stand-in that answers --version with
// version and otherwise runs body.
func WriteFakeTool(t testing.TB, dir, name, version, body string) string {
	t.Helper()

	script := fmt.Sprintf("if [ \"$1\" = \"--version\" ]; then\n  echo \"%s version %s\"\n  exit 0\nfi\n%s", name, version, body)
	return WriteScript(t, dir, name, script)
}

// WriteFakePython writes an interpreter stand-in reporting version. Scripts
// passed to it are executed with /bin/sh.
func WriteFakePython(t testing.TB, dir, name, version string) string {
	t.Helper()

	script := fmt.Sprintf("if [ \"$1\" = \"--version\" ]; then\n  echo \"Python %s\"\n  exit 0\nfi\nexec /bin/sh \"$@\"\n", version)
	return WriteScript(t, dir, name, script)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
