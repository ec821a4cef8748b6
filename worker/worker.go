// Package worker implements the single-shot render executor spawned by the
// dispatcher for every render after the first. A worker handles exactly one
// request and exits; isolation is the point, so nothing here is reusable
// across requests.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/renderbridge/models"
	"github.com/use-agent/renderbridge/render"
)

// EnvMarker is set on a spawned worker's environment. Binaries embedding
// the bridge check it at startup and hand control to Run before doing
// anything else.
const EnvMarker = "RENDERBRIDGE_WORKER"

// IsWorkerProcess reports whether this process was spawned as a worker.
func IsWorkerProcess() bool {
	return os.Getenv(EnvMarker) == "1"
}

// Run executes the worker side of the wire protocol: announce readiness,
// read one request, render it, emit exactly one result, and return the
// process exit code (0 on success, 1 on failure). Stdout belongs to the
// protocol; all logging must go to stderr.
//
// A panic anywhere below still attempts a best-effort failure message
// before the non-zero exit, so the dispatcher is released by the message
// rather than by its exit-code backstop.
func Run(in io.Reader, out io.Writer, runner render.Runner) (code int) {
	enc := json.NewEncoder(out)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker panicked", "panic", r)
			_ = enc.Encode(models.WorkerResult{
				Success: false,
				Error:   models.Errorf(models.ErrUnknown, "worker panicked: %v", r).Error(),
			})
			code = 1
		}
	}()

	if err := enc.Encode(models.WorkerHello{Ready: true}); err != nil {
		slog.Error("worker failed to send readiness", "error", err)
		return 1
	}

	req, err := readRequest(in)
	if err != nil {
		_ = enc.Encode(models.WorkerResult{
			Success: false,
			Error:   models.Errorf(models.ErrUnknown, "bad request: %v", err).Error(),
		})
		return 1
	}
	req.Options.Defaults()

	// The machine enforces the render budget itself; the context is a hard
	// backstop slightly beyond it so a wedged evaluation cannot keep the
	// process alive past the dispatcher's patience.
	backstop := time.Duration(req.Options.Timeout)*time.Millisecond + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), backstop)
	defer cancel()

	slog.Info("worker rendering", "url", req.URL, "timeoutMs", req.Options.Timeout)
	outcome := runner(ctx, req)

	if err := enc.Encode(models.ResultFromOutcome(outcome)); err != nil {
		slog.Error("worker failed to send result", "error", err)
		return 1
	}
	if outcome.OK() {
		return 0
	}
	return 1
}

// readRequest decodes the single request line from the dispatcher.
func readRequest(in io.Reader) (*models.RenderRequest, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		return nil, fmt.Errorf("request channel closed before a request arrived")
	}

	var req models.RenderRequest
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.URL == "" {
		return nil, fmt.Errorf("request has no url")
	}
	return &req, nil
}
