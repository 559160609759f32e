package frametool

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"framebridge/internal/services"
)

func intOpt(v int) *int { return &v }
func floatOpt(v float64) *float64 { return &v }

func TestCompressArgs(t *testing.T) {
	tests := []struct {
		name string
		opts BatchCompressOptions
		want []string
	}{
		{
			name: "minimal",
			opts: BatchCompressOptions{InputDir: "/in", OutputDir: "/out"},
			want: []string{"compress", "-i", "/in", "-o", "/out"},
		},
		{
			name: "recursive with quality",
			opts: BatchCompressOptions{InputDir: "/in", OutputDir: "/out", Recursive: true, Quality: intOpt(80)},
			want: []string{"compress", "-i", "/in", "-o", "/out", "-r", "-q", "80"},
		},
		{
			name: "size bounds",
			opts: BatchCompressOptions{InputDir: "/in", OutputDir: "/out", MinSize: floatOpt(1.5), MaxSize: floatOpt(10)},
			want: []string{"compress", "-i", "/in", "-o", "/out", "--min-size", "1.5", "--max-size", "10"},
		},
		{
			name: "zero quality is still passed",
			opts: BatchCompressOptions{InputDir: "/in", OutputDir: "/out", Quality: intOpt(0)},
			want: []string{"compress", "-i", "/in", "-o", "/out", "-q", "0"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompressArgs(tc.opts); !slices.Equal(got, tc.want) {
				t.Fatalf("CompressArgs() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDirFirstArgs(t *testing.T) {
	opts := ExtractFirstFrameOptions{
		InputDir:    "/videos",
		OutputDir:   "/frames",
		Recursive:   true,
		Compress:    true,
		WebPQuality: intOpt(75),
		MinSize:     floatOpt(0.25),
		MaxSize:     floatOpt(2048),
	}
	want := []string{"dirfirst", "-i", "/videos", "-o", "/frames", "-r", "-c", "--webp-quality", "75", "--min-size", "0.25", "--max-size", "2048"}
	if got := DirFirstArgs(opts); !slices.Equal(got, want) {
		t.Fatalf("DirFirstArgs() = %v, want %v", got, want)
	}

	got := DirFirstArgs(ExtractFirstFrameOptions{InputDir: "a", OutputDir: "b"})
	if !slices.Equal(got, []string{"dirfirst", "-i", "a", "-o", "b"}) {
		t.Fatalf("unexpected minimal args %v", got)
	}
}

func TestOptionsValidatePresenceOnly(t *testing.T) {
	err := BatchCompressOptions{OutputDir: "/out"}.Validate()
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "inputDir is required") {
		t.Fatalf("expected inputDir validation error, got %v", err)
	}
	err = ExtractFirstFrameOptions{InputDir: "/in"}.Validate()
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "outputDir") {
		t.Fatalf("expected outputDir validation error, got %v", err)
	}
	if err := (BatchCompressOptions{InputDir: "/in", OutputDir: "/out", Quality: intOpt(500)}).Validate(); err != nil {
		t.Fatalf("out of range quality should not be validated here: %v", err)
	}
}
