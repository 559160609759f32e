// Package progress recognizes completion percentages embedded in process
// output.
//
// Two encodings are understood anywhere inside a chunk: a minimal JSON
// fragment such as {"progress": 42.5} and the plain marker PROGRESS:42.5.
// When a chunk carries several markers the right-most one wins. Values are
// clamped to [0,100].
package progress

import (
	"regexp"
	"strconv"
)

var (
	jsonPattern   = regexp.MustCompile(`\{\s*"progress"\s*:\s*(-?\d+(?:\.\d+)?)\s*\}`)
	markerPattern = regexp.MustCompile(`PROGRESS:\s*(-?\d+(?:\.\d+)?)`)
)

// Parse returns the last progress value found in chunk.
func Parse(chunk string) (float64, bool) {
	pos := -1
	var raw string
	for _, pattern := range []*regexp.Regexp{jsonPattern, markerPattern} {
		matches := pattern.FindAllStringSubmatchIndex(chunk, -1)
		if len(matches) == 0 {
			continue
		}
		last := matches[len(matches)-1]
		if last[0] > pos {
			pos = last[0]
			raw = chunk[last[2]:last[3]]
		}
	}
	if pos < 0 {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return Clamp(value), true
}

// Clamp limits value to the [0,100] range.
func Clamp(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// Extractor feeds output chunks through Parse and reports each recognized
// value to its listener.
type Extractor struct {
	listener func(float64)
	last     float64
	seen     bool
}

// NewExtractor returns an Extractor reporting to listener. A nil listener
// makes Feed a pure parser.
func NewExtractor(listener func(float64)) *Extractor {
	return &Extractor{listener: listener}
}

// Feed inspects one chunk. It reports whether a value was recognized.
func (e *Extractor) Feed(chunk string) bool {
	value, ok := Parse(chunk)
	if !ok {
		return false
	}
	e.last = value
	e.seen = true
	if e.listener != nil {
		e.listener(value)
	}
	return true
}

// Last returns the most recent value reported, if any.
func (e *Extractor) Last() (float64, bool) {
	return e.last, e.seen
}
