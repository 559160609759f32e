package payload_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"framebridge/internal/invoke"
	"framebridge/internal/payload"
	"framebridge/internal/services"
)

func TestExtractTrailingLineAfterLogs(t *testing.T) {
	stdout := strings.Join([]string{
		"loading model",
		"PROGRESS:50",
		`{"progress": 90}`,
		`  {"success": true, "data": {"frames": 12, "ratio": 0.25, "name": "clip"}}  `,
		"",
	}, "\n")

	p := payload.Extract(stdout)
	if p.Kind != payload.Parsed {
		t.Fatalf("expected parsed payload, got %s", p.Kind)
	}
	res := p.Result()
	if !res.Success {
		t.Fatal("expected success")
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", res.Data)
	}
	if data["frames"] != json.Number("12") || data["ratio"] != json.Number("0.25") || data["name"] != "clip" {
		t.Fatalf("expected fields verbatim, got %v", data)
	}
}

func TestExtractPrefersLastObjectLine(t *testing.T) {
	stdout := "{\"step\": 1}\nsome log\n{\"step\": 2}\n"
	p := payload.Extract(stdout)
	if p.Object["step"] != json.Number("2") {
		t.Fatalf("expected last object line, got %v", p.Object)
	}
}

func TestExtractSkipsInvalidObjectLines(t *testing.T) {
	stdout := "{\"ok\": 1}\n{not json}\n"
	p := payload.Extract(stdout)
	if p.Kind != payload.Parsed || p.Object["ok"] != json.Number("1") {
		t.Fatalf("expected scan to continue past invalid line, got %+v", p)
	}
}

func TestExtractFallsBackToBraceSpan(t *testing.T) {
	stdout := `done: {"success": false, "error": "bad input"} trailing`
	p := payload.Extract(stdout)
	if p.Kind != payload.Parsed {
		t.Fatalf("expected brace span to parse, got %+v", p)
	}
	res := p.Result()
	if res.Success || res.Error != "bad input" {
		t.Fatalf("unexpected result %+v", res)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["error"] != "bad input" {
		t.Fatalf("expected whole object as data, got %v", res.Data)
	}
}

func TestExtractRawTextWithoutBraces(t *testing.T) {
	p := payload.Extract("\n  converted 3 files  \n")
	if p.Kind != payload.RawText {
		t.Fatalf("expected raw text, got %s", p.Kind)
	}
	res := p.Result()
	if !res.Success || res.Data != "converted 3 files" {
		t.Fatalf("unexpected raw result %+v", res)
	}
}

func TestExtractRawTextWhenBracesAreNotJSON(t *testing.T) {
	res := payload.Parse("template {name} rendered")
	if !res.Success || res.Data != "template {name} rendered" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractEmpty(t *testing.T) {
	res := payload.Parse("")
	if !res.Success || res.Data != "" {
		t.Fatalf("unexpected result for empty stdout %+v", res)
	}
}

func TestResultSuccessPolicy(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`{"data": 1}`, true},
		{`{"success": true}`, true},
		{`{"success": false}`, false},
		{`{"success": "false"}`, true},
		{`{"success": 0}`, true},
		{`{"success": null}`, true},
	}
	for _, tc := range tests {
		if got := payload.Parse(tc.line).Success; got != tc.want {
			t.Fatalf("Parse(%s).Success = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestResultDataFallsBackOnNull(t *testing.T) {
	res := payload.Parse(`{"data": null, "count": 2}`)
	data, ok := res.Data.(map[string]any)
	if !ok || data["count"] != json.Number("2") {
		t.Fatalf("expected whole object when data is null, got %v", res.Data)
	}
}

func TestResultStructuredError(t *testing.T) {
	res := payload.Parse(`{"success": false, "error": {"code": 7}}`)
	if res.Error != `{"code":7}` {
		t.Fatalf("expected JSON text for structured error, got %q", res.Error)
	}
}

func TestFromOutcomeSuccess(t *testing.T) {
	res := payload.FromOutcome(invoke.Outcome{
		Exited: true,
		Stdout: "log\n{\"success\": true, \"data\": [1, 2]}\n",
	})
	if !res.Success || !res.Structured {
		t.Fatalf("expected structured success, got %+v", res)
	}
	items, ok := res.Data.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected data %v", res.Data)
	}
}

func TestFromOutcomeRawTextIsMalformed(t *testing.T) {
	res := payload.FromOutcome(invoke.Outcome{Exited: true, Stdout: "done\n"})
	if !res.Success || res.Structured || res.Data != "done" {
		t.Fatalf("expected raw text success, got %+v", res)
	}
	if err := res.Malformed(); !errors.Is(err, services.ErrMalformedOutput) {
		t.Fatalf("expected malformed marker, got %v", err)
	}

	structured := payload.FromOutcome(invoke.Outcome{Exited: true, Stdout: `{"success": true}`})
	if err := structured.Malformed(); err != nil {
		t.Fatalf("structured result flagged as malformed: %v", err)
	}
	failed := payload.FromOutcome(invoke.Outcome{Exited: true, ExitCode: 1})
	if err := failed.Malformed(); err != nil {
		t.Fatalf("failed run flagged as malformed: %v", err)
	}
}

func TestFromOutcomeZeroExitButPayloadFailure(t *testing.T) {
	res := payload.FromOutcome(invoke.Outcome{Exited: true, Stdout: `{"success": false, "error": "no frames"}`})
	if res.Success || res.Error != "no frames" {
		t.Fatalf("expected payload failure, got %+v", res)
	}
}

func TestFromOutcomeNonZeroExit(t *testing.T) {
	res := payload.FromOutcome(invoke.Outcome{Exited: true, ExitCode: 2, Stdout: `{"success": true}`, Stderr: "Traceback\n"})
	if res.Success {
		t.Fatal("non-zero exit must fail regardless of payload")
	}
	if res.Error != "Traceback" {
		t.Fatalf("expected stderr as error, got %q", res.Error)
	}

	res = payload.FromOutcome(invoke.Outcome{Exited: true, ExitCode: 4})
	if res.Error != "exit code 4" {
		t.Fatalf("expected exit code message, got %q", res.Error)
	}
}

func TestFromOutcomeSpawnAndTimeout(t *testing.T) {
	res := payload.FromOutcome(invoke.Outcome{Path: "/usr/bin/python3", SpawnFailed: true, ExitCode: -1, Err: errors.New("no such file")})
	if res.Success || !strings.Contains(res.Error, "/usr/bin/python3") || !strings.Contains(res.Error, "no such file") {
		t.Fatalf("unexpected spawn result %+v", res)
	}

	res = payload.FromOutcome(invoke.Outcome{TimedOut: true, ExitCode: -1, Duration: 1500 * time.Millisecond})
	if res.Success || !res.TimedOut || !strings.Contains(res.Error, "timed out") {
		t.Fatalf("unexpected timeout result %+v", res)
	}

	res = payload.FromOutcome(invoke.Outcome{TimedOut: true, Canceled: true, ExitCode: -1})
	if res.Error != "execution canceled" {
		t.Fatalf("unexpected cancel result %+v", res)
	}
}
