package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/use-agent/renderbridge/models"
)

// workerEvent is one occurrence on a worker's lifecycle: its readiness
// signal, its terminal result message, or its exit.
type workerEvent struct {
	kind    eventKind
	result  models.WorkerResult
	exitErr error
}

type eventKind int

const (
	evReady eventKind = iota
	evResult
	evExit
)

// wireMsg is the union of worker→dispatcher message shapes, distinguished
// by which field is present.
type wireMsg struct {
	Ready   *bool  `json:"ready"`
	Success *bool  `json:"success"`
	HTML    string `json:"html"`
	Error   string `json:"error"`
}

// dispatchWorker runs one request in a freshly spawned worker: spawn, await
// readiness, send the request, await exactly one of result / exit /
// deadline, then make sure the process is gone.
func (d *Dispatcher) dispatchWorker(ctx context.Context, req *models.RenderRequest, deadline time.Duration) (string, error) {
	cmd, err := d.newWorkerCmd()
	if err != nil {
		return "", fmt.Errorf("dispatch: build worker command: %w", err)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("dispatch: worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("dispatch: worker stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("dispatch: spawn render worker: %w", err)
	}
	defer stdin.Close()

	// One goroutine consumes the worker's stdout to EOF and only then reaps
	// the process, so an exit event always arrives after every message the
	// worker managed to write. The channel buffer covers the worker's whole
	// legal output (ready + result + exit), so this goroutine never blocks
	// and never leaks even if the dispatcher returns early.
	events := make(chan workerEvent, 4)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			var m wireMsg
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				slog.Debug("ignoring malformed worker output", "line", scanner.Text())
				continue
			}
			switch {
			case m.Ready != nil && *m.Ready:
				events <- workerEvent{kind: evReady}
			case m.Success != nil:
				events <- workerEvent{kind: evResult, result: models.WorkerResult{
					Success: *m.Success, HTML: m.HTML, Error: m.Error,
				}}
			}
		}
		events <- workerEvent{kind: evExit, exitErr: cmd.Wait()}
	}()

	kill := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}

	// ── 1. Readiness handshake ──────────────────────────────────────
	readyTimer := time.NewTimer(d.cfg.ReadyTimeout)
	defer readyTimer.Stop()

	var early *models.WorkerResult
waitReady:
	for {
		select {
		case ev := <-events:
			switch ev.kind {
			case evReady:
				break waitReady
			case evResult:
				// Result without a preceding ready signal: tolerate it, the
				// payload is what matters.
				early = &ev.result
				break waitReady
			case evExit:
				return "", classifyExit(ev.exitErr)
			}
		case <-readyTimer.C:
			kill()
			return "", models.Errorf(models.ErrProcessFailure,
				"worker did not signal readiness within %s", d.cfg.ReadyTimeout)
		case <-ctx.Done():
			kill()
			return "", models.Categorize(ctx.Err(), "render interrupted")
		}
	}

	if early != nil {
		return d.finishWorker(cmd, events, *early)
	}

	// ── 2. Send the request ─────────────────────────────────────────
	if err := json.NewEncoder(stdin).Encode(req); err != nil {
		kill()
		return "", models.Errorf(models.ErrProcessFailure,
			"failed to send request to worker: %v", err)
	}

	// ── 3. Await the terminal message ───────────────────────────────
	resultTimer := time.NewTimer(deadline)
	defer resultTimer.Stop()

	for {
		select {
		case ev := <-events:
			switch ev.kind {
			case evResult:
				return d.finishWorker(cmd, events, ev.result)
			case evExit:
				return "", classifyExit(ev.exitErr)
			}
		case <-resultTimer.C:
			kill()
			return "", models.Errorf(models.ErrTimeout,
				"rendering timed out after %s", deadline)
		case <-ctx.Done():
			kill()
			return "", models.Categorize(ctx.Err(), "render interrupted")
		}
	}
}

// finishWorker converts the worker's terminal message and makes sure the
// process actually dies: workers are expected to self-terminate after their
// result, and get killed if they linger past the kill grace.
func (d *Dispatcher) finishWorker(cmd *exec.Cmd, events <-chan workerEvent, result models.WorkerResult) (string, error) {
	graceTimer := time.NewTimer(d.cfg.KillGrace)
	defer graceTimer.Stop()

reap:
	for {
		select {
		case ev := <-events:
			if ev.kind == evExit {
				break reap
			}
		case <-graceTimer.C:
			slog.Warn("worker did not exit after result, killing it")
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			break reap
		}
	}

	outcome := models.OutcomeFromResult(result)
	if outcome.OK() {
		return outcome.HTML, nil
	}
	return "", outcome.Err
}

// classifyExit maps a silent worker death to the ProcessFailure contract.
func classifyExit(err error) *models.RenderError {
	if err == nil {
		return models.Errorf(models.ErrProcessFailure,
			"worker exited without sending result")
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return models.Errorf(models.ErrProcessFailure,
			"worker exited with code %d", exitErr.ExitCode())
	}
	return models.Errorf(models.ErrProcessFailure, "worker wait failed: %v", err)
}
