package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// TailOptions selects which part of the file to return.
type TailOptions struct {
	// Offset is a byte position from a previous Page, or negative for the
	// last Limit lines.
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// Page is a batch of complete lines and the offset to resume from.
type Page struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// Tail reads lines from path. A missing file yields an empty page at offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (Page, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, nil
	}
	if err != nil {
		return Page{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Page{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var page Page
	if opts.Offset < 0 {
		page, err = lastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			// Truncated or rotated underneath us.
			start = info.Size()
		}
		page, err = linesFrom(path, start)
	}
	if err != nil {
		return page, err
	}
	if len(page.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return page, nil
	}
	return poll(ctx, path, page.Offset, opts.Wait)
}

func lastLines(path string, limit int) (Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return Page{}, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if limit <= 0 {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return Page{}, fmt.Errorf("seek log file: %w", err)
		}
		return Page{Offset: end}, nil
	}

	window := make([]string, 0, limit)
	offset, err := scanLines(f, func(line string) {
		if len(window) == limit {
			window = append(window[:0], window[1:]...)
		}
		window = append(window, line)
	})
	if err != nil {
		return Page{}, err
	}
	return Page{Lines: window, Offset: offset}, nil
}

func linesFrom(path string, offset int64) (Page, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, nil
	}
	if err != nil {
		return Page{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Page{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	read, err := scanLines(f, func(line string) { lines = append(lines, line) })
	if err != nil {
		return Page{Offset: offset}, err
	}
	return Page{Lines: lines, Offset: offset + read}, nil
}

// scanLines feeds every complete line from r to fn and returns the number of
// bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		text := line[:len(line)-1]
		if n := len(text); n > 0 && text[n-1] == '\r' {
			text = text[:n-1]
		}
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		fn(text)
	}
}

func poll(ctx context.Context, path string, offset int64, wait time.Duration) (Page, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Page{Offset: offset}, ctx.Err()
		case <-timer.C:
			return Page{Offset: offset}, nil
		case <-ticker.C:
		}
		page, err := linesFrom(path, offset)
		if err != nil {
			return page, err
		}
		if len(page.Lines) > 0 {
			return page, nil
		}
		offset = page.Offset
	}
}
