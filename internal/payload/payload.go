// Package payload recovers the structured result a helper process prints on
// stdout.
//
// Helpers log freely and finish with a single JSON object on its own line.
// Extract looks for that object in two phases (last line-delimited object,
// then the last brace span of the whole text) and otherwise falls back to the
// raw text. It never fails: the caller always gets either a Parsed payload or
// a RawText payload.
package payload

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Kind tags which branch of Payload is populated.
type Kind int

const (
	RawText Kind = iota
	Parsed
)

func (k Kind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "raw_text"
}

// Payload is the outcome of structured extraction.
type Payload struct {
	Kind Kind
	// Object holds the decoded fields when Kind is Parsed. Numbers are
	// json.Number so values survive untouched.
	Object map[string]any
	// Text is the trimmed stdout when Kind is RawText, or the JSON source
	// of Object when Kind is Parsed.
	Text string
}

// Extract finds the structured payload in stdout.
func Extract(stdout string) Payload {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		if obj, ok := decodeObject(line); ok {
			return Payload{Kind: Parsed, Object: obj, Text: line}
		}
	}

	start := strings.LastIndex(stdout, "{")
	end := strings.LastIndex(stdout, "}")
	if start >= 0 && end > start {
		span := stdout[start : end+1]
		if obj, ok := decodeObject(span); ok {
			return Payload{Kind: Parsed, Object: obj, Text: span}
		}
	}

	return Payload{Kind: RawText, Text: strings.TrimSpace(stdout)}
}

func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return obj, true
}

// Result is the interpretation of a payload.
type Result struct {
	Success bool
	Data    any
	Error   string
}

// Result interprets the payload.
//
// Success is false only when the object's success field is literally false;
// a payload that omits the flag, or raw text, counts as success.
//
// Data is the object's data field when present and non-null, otherwise the
// whole object; for raw text it is the trimmed text.
func (p Payload) Result() Result {
	if p.Kind != Parsed {
		return Result{Success: true, Data: p.Text}
	}
	res := Result{Success: true, Data: p.Object}
	if flag, ok := p.Object["success"].(bool); ok && !flag {
		res.Success = false
	}
	if data, ok := p.Object["data"]; ok && data != nil {
		res.Data = data
	}
	res.Error = errorText(p.Object["error"])
	return res
}

// Parse is Extract followed by Result.
func Parse(stdout string) Result {
	return Extract(stdout).Result()
}

func errorText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
