// Package dispatch decides, per render, whether to run the state machine
// in-process or in a freshly spawned worker process. Browser engines on
// some platforms (macOS in particular) cannot safely host a second webview
// event loop in one process; the policy is applied on every platform for
// consistency: the first render takes the in-process fast path, every later
// render pays the spawn cost of an isolated single-shot worker.
package dispatch

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/models"
	"github.com/use-agent/renderbridge/render"
	"github.com/use-agent/renderbridge/worker"
)

// Dispatcher routes render requests. The attempt counter is the only state
// shared across concurrent renders; it is atomic so two simultaneous first
// calls can never both take the in-process path. It resets only with the
// process.
type Dispatcher struct {
	cfg    config.DispatchConfig
	runner render.Runner

	// newWorkerCmd builds the command for one worker process. Overridable
	// for tests via SetWorkerCommand.
	newWorkerCmd func() (*exec.Cmd, error)

	attempts      atomic.Int64
	workerRenders atomic.Int64
}

// New creates a Dispatcher. runner executes a request in-process; worker
// processes are spawned by re-executing the current binary with the worker
// environment marker set.
func New(cfg config.DispatchConfig, runner render.Runner) *Dispatcher {
	return &Dispatcher{
		cfg:          cfg,
		runner:       runner,
		newWorkerCmd: selfExecCommand,
	}
}

// SetWorkerCommand overrides how worker processes are spawned.
func (d *Dispatcher) SetWorkerCommand(f func() (*exec.Cmd, error)) {
	d.newWorkerCmd = f
}

// Stats returns the process-wide dispatch counters.
func (d *Dispatcher) Stats() models.DispatchStats {
	return models.DispatchStats{
		Attempts:      d.attempts.Load(),
		WorkerRenders: d.workerRenders.Load(),
	}
}

// Dispatch executes one render to its single outcome. Render failures come
// back as *models.RenderError; only spawn-level faults (worker binary
// missing, fork failure) surface as plain errors.
//
// The dispatch deadline is the render timeout plus the grace margin, so the
// dispatcher's clock always encloses the state machine's. Whichever layer
// notices the deadline first, the caller sees a Timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.RenderRequest) (string, error) {
	deadline := time.Duration(req.Options.Timeout)*time.Millisecond + d.cfg.GraceMargin

	attempt := d.attempts.Add(1)
	if attempt == 1 {
		slog.Debug("dispatching in-process", "url", req.URL)
		return d.dispatchInProcess(ctx, req, deadline)
	}

	d.workerRenders.Add(1)
	slog.Debug("dispatching to worker", "url", req.URL, "attempt", attempt)
	return d.dispatchWorker(ctx, req, deadline)
}

// dispatchInProcess runs the state machine on its own goroutine and bridges
// the result back over a one-shot channel, so the caller is never blocked
// inside browser plumbing and the deadline stays enforceable even if the
// machine wedges.
func (d *Dispatcher) dispatchInProcess(ctx context.Context, req *models.RenderRequest, deadline time.Duration) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan *models.Outcome, 1)
	go func() {
		done <- d.runner(runCtx, req)
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case outcome := <-done:
		if outcome.OK() {
			return outcome.HTML, nil
		}
		return "", outcome.Err
	case <-timer.C:
		return "", models.Errorf(models.ErrTimeout,
			"rendering timed out after %s", deadline)
	case <-ctx.Done():
		return "", models.Categorize(ctx.Err(), "render interrupted")
	}
}

// selfExecCommand re-executes the current binary as a worker. The worker
// marker is the only parameter passed at spawn time; the request itself
// arrives over the wire protocol after the readiness handshake.
func selfExecCommand() (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), worker.EnvMarker+"=1")
	return cmd, nil
}
