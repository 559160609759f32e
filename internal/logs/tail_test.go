package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"framebridge/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framebridge.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	page, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(page.Lines) != 2 || page.Lines[0] != "b" || page.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", page.Lines)
	}
	if page.Offset != 6 {
		t.Fatalf("offset = %d, want 6", page.Offset)
	}
}

func TestTailLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "done\npart")

	page, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(page.Lines) != 1 || page.Lines[0] != "done" || page.Offset != 5 {
		t.Fatalf("unexpected page %#v", page)
	}
}

func TestTailMissingFile(t *testing.T) {
	page, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: 10})
	if err != nil || page.Offset != 0 || len(page.Lines) != 0 {
		t.Fatalf("unexpected result %#v %v", page, err)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil || len(first.Lines) != 1 {
		t.Fatalf("initial tail: %#v %v", first, err)
	}

	done := make(chan logs.Page, 1)
	go func() {
		page, err := logs.Tail(ctx, path, logs.TailOptions{Offset: first.Offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail: %v", err)
		}
		done <- page
	}()

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case page := <-done:
		if len(page.Lines) != 1 || page.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", page.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestTailFollowTimesOut(t *testing.T) {
	path := writeLog(t, "only\n")
	page, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 5, Follow: true, Wait: 300 * time.Millisecond})
	if err != nil || len(page.Lines) != 0 || page.Offset != 5 {
		t.Fatalf("unexpected result %#v %v", page, err)
	}
}
