package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/use-agent/renderbridge/models"
)

func requestLine(t *testing.T, req models.RenderRequest) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(append(data, '\n'))
}

// decodeProtocol splits the worker's stdout into the hello line and the
// result line.
func decodeProtocol(t *testing.T, out *bytes.Buffer) (models.WorkerHello, models.WorkerResult) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected hello + result, got %d lines: %q", len(lines), out.String())
	}
	var hello models.WorkerHello
	if err := json.Unmarshal([]byte(lines[0]), &hello); err != nil {
		t.Fatalf("bad hello line: %v", err)
	}
	var result models.WorkerResult
	if err := json.Unmarshal([]byte(lines[1]), &result); err != nil {
		t.Fatalf("bad result line: %v", err)
	}
	return hello, result
}

func TestRun_Success(t *testing.T) {
	runner := func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		if req.URL != "http://example.test/" {
			t.Errorf("unexpected url: %q", req.URL)
		}
		return models.Success("<html>ok</html>")
	}

	in := requestLine(t, models.RenderRequest{URL: "http://example.test/"})
	var out bytes.Buffer
	code := Run(in, &out, runner)

	if code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	hello, result := decodeProtocol(t, &out)
	if !hello.Ready {
		t.Error("readiness never signaled")
	}
	if !result.Success || result.HTML != "<html>ok</html>" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRun_RenderFailure(t *testing.T) {
	runner := func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		return models.Failure(models.Errorf(models.ErrTimeout, "rendering timed out after 5s"))
	}

	in := requestLine(t, models.RenderRequest{URL: "http://example.test/"})
	var out bytes.Buffer
	code := Run(in, &out, runner)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	_, result := decodeProtocol(t, &out)
	if result.Success {
		t.Error("failure reported as success")
	}
	if !strings.HasPrefix(result.Error, "TimeoutError:") {
		t.Errorf("error tag lost: %q", result.Error)
	}
}

func TestRun_DefaultsApplied(t *testing.T) {
	var seen int
	runner := func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		seen = req.Options.Timeout
		return models.Success("")
	}

	in := requestLine(t, models.RenderRequest{URL: "http://example.test/"})
	var out bytes.Buffer
	Run(in, &out, runner)

	if seen != models.DefaultTimeoutMs {
		t.Errorf("timeout not defaulted: got %d", seen)
	}
}

func TestRun_BadRequest(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"malformed json", "{not json\n"},
		{"missing url", `{"options":{}}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
				t.Fatal("runner must not run for a bad request")
				return nil
			}

			var out bytes.Buffer
			code := Run(strings.NewReader(tt.input), &out, runner)

			if code != 1 {
				t.Errorf("expected exit code 1, got %d", code)
			}
			_, result := decodeProtocol(t, &out)
			if result.Success {
				t.Error("bad request reported as success")
			}
			if !strings.Contains(result.Error, "bad request") {
				t.Errorf("unexpected error: %q", result.Error)
			}
		})
	}
}

func TestRun_PanicEmitsFailure(t *testing.T) {
	runner := func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		panic("wedged evaluation")
	}

	in := requestLine(t, models.RenderRequest{URL: "http://example.test/"})
	var out bytes.Buffer
	code := Run(in, &out, runner)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	_, result := decodeProtocol(t, &out)
	if result.Success {
		t.Error("panic reported as success")
	}
	if !strings.Contains(result.Error, "wedged evaluation") {
		t.Errorf("panic value missing from error: %q", result.Error)
	}
}

func TestIsWorkerProcess(t *testing.T) {
	t.Setenv(EnvMarker, "")
	if IsWorkerProcess() {
		t.Error("unset marker must not read as worker")
	}
	t.Setenv(EnvMarker, "1")
	if !IsWorkerProcess() {
		t.Error("marker set but not detected")
	}
}
