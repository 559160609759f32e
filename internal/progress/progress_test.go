package progress_test

import (
	"testing"

	"framebridge/internal/progress"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  float64
		found bool
	}{
		{"json fragment", `{"progress": 42.5}`, 42.5, true},
		{"json without spaces", `log line {"progress":7}`, 7, true},
		{"marker", "PROGRESS:33", 33, true},
		{"marker fractional", "working... PROGRESS:12.75\n", 12.75, true},
		{"clamps high", "PROGRESS:150", 100, true},
		{"clamps negative", "PROGRESS:-5", 0, true},
		{"clamps json", `{"progress": 250}`, 100, true},
		{"last marker wins", "PROGRESS:10\nPROGRESS:20\n", 20, true},
		{"last across encodings", "PROGRESS:90 {\"progress\": 30}", 30, true},
		{"marker after json", "{\"progress\": 30} PROGRESS:95", 95, true},
		{"no match", "processing frame 12 of 40", 0, false},
		{"larger object ignored", `{"progress": 10, "eta": 3}`, 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := progress.Parse(tc.chunk)
			if ok != tc.found {
				t.Fatalf("Parse(%q) found=%v, want %v", tc.chunk, ok, tc.found)
			}
			if ok && got != tc.want {
				t.Fatalf("Parse(%q) = %v, want %v", tc.chunk, got, tc.want)
			}
		})
	}
}

func TestExtractorReportsRecognizedValues(t *testing.T) {
	var got []float64
	ex := progress.NewExtractor(func(v float64) { got = append(got, v) })

	chunks := []string{"starting\n", "PROGRESS:25\n", "noise", `{"progress": 80}`, "PROGRESS:101"}
	for _, chunk := range chunks {
		ex.Feed(chunk)
	}
	want := []float64{25, 80, 100}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if last, ok := ex.Last(); !ok || last != 100 {
		t.Fatalf("unexpected last value %v %v", last, ok)
	}
}

func TestExtractorWithoutListener(t *testing.T) {
	ex := progress.NewExtractor(nil)
	if ex.Feed("nothing here") {
		t.Fatal("expected no match")
	}
	if _, ok := ex.Last(); ok {
		t.Fatal("expected no last value")
	}
	if !ex.Feed("PROGRESS:5") {
		t.Fatal("expected match")
	}
}
