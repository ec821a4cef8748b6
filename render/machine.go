// Package render implements the state machine that drives one page load to
// a single terminal HTML-or-failure outcome. Instead of blocking on any one
// long operation, it polls the session's readiness flag and wait conditions
// once per tick, so the wall-clock timeout is enforced uniformly no matter
// where the page is stuck.
package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/models"
	"github.com/use-agent/renderbridge/webview"
)

// phase is the machine's tagged state. Transitions happen one per tick and
// only ever move forward.
type phase int

const (
	phaseInitializing phase = iota
	phaseAwaitingLoad
	phaseAwaitingSelector
	phaseExecutingScript
	phaseExtracting
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInitializing:
		return "initializing"
	case phaseAwaitingLoad:
		return "awaiting-load"
	case phaseAwaitingSelector:
		return "awaiting-selector"
	case phaseExecutingScript:
		return "executing-script"
	case phaseExtracting:
		return "extracting"
	default:
		return "done"
	}
}

// OpenFunc constructs the session's view. Errors must already be classified
// (WindowCreation vs WebViewCreation) by the implementation.
type OpenFunc func(ctx context.Context) (webview.View, error)

// Machine advances one render request through its phases. It is single-use:
// Run may be called once, produces exactly one outcome, and tears the view
// down unconditionally afterwards.
type Machine struct {
	req  *models.RenderRequest
	open OpenFunc
	tick time.Duration

	view    webview.View
	phase   phase
	start   time.Time
	outcome *models.Outcome
}

// NewMachine creates a machine for one request. The request must already be
// validated and defaulted.
func NewMachine(req *models.RenderRequest, open OpenFunc, tick time.Duration) *Machine {
	return &Machine{req: req, open: open, tick: tick}
}

// Run drives the machine to its terminal state. The timeout clock starts
// here, before the session is constructed, so slow browser startup counts
// against the budget. Context expiry resolves as a Timeout failure, keeping
// the caller-visible contract uniform across layers.
func (m *Machine) Run(ctx context.Context) *models.Outcome {
	m.start = time.Now()

	defer func() {
		if m.view != nil {
			if err := m.view.Close(); err != nil {
				slog.Warn("session teardown failed", "url", m.req.URL, "error", err)
			}
			m.view = nil
		}
	}()

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		if m.Tick(ctx, time.Now()) {
			return m.outcome
		}
		select {
		case <-ctx.Done():
			m.fail(models.Categorize(ctx.Err(), "render interrupted"))
			return m.outcome
		case <-ticker.C:
		}
	}
}

// Tick advances the machine by at most one transition and reports whether a
// terminal state was reached. Exported separately from Run so the ordering
// of load → selector → script → extract is testable without real time.
func (m *Machine) Tick(ctx context.Context, now time.Time) bool {
	switch m.phase {
	case phaseInitializing:
		view, err := m.open(ctx)
		if err != nil {
			m.fail(models.Categorize(err, "session setup failed"))
			return true
		}
		m.view = view
		m.phase = phaseAwaitingLoad

	case phaseAwaitingLoad:
		if m.expired(now) {
			return true
		}
		if evalBool(m.view, readyProbe) {
			m.phase = m.afterLoad()
		}

	case phaseAwaitingSelector:
		if m.expired(now) {
			return true
		}
		if evalBool(m.view, selectorProbe(m.req.Options.WaitFor)) {
			m.phase = m.afterSelector()
		}

	case phaseExecutingScript:
		if _, err := m.view.Eval(customScript(m.req.Options.Script)); err != nil {
			m.fail(models.NewRenderError(models.ErrScriptExecution, err.Error(), err))
			return true
		}
		m.phase = phaseExtracting

	case phaseExtracting:
		raw, err := m.view.Eval(extractScript(m.req.Options.Selector))
		if err != nil {
			m.fail(models.NewRenderError(models.ErrScriptExecution, err.Error(), err))
			return true
		}
		m.outcome = models.Success(unquote(raw))
		m.phase = phaseDone
	}

	return m.phase == phaseDone
}

// afterLoad picks the phase following load completion.
func (m *Machine) afterLoad() phase {
	if m.req.Options.WaitFor != "" {
		return phaseAwaitingSelector
	}
	return m.afterSelector()
}

// afterSelector picks the phase following selector satisfaction.
func (m *Machine) afterSelector() phase {
	if m.req.Options.Script != "" {
		return phaseExecutingScript
	}
	return phaseExtracting
}

// expired checks the session-wide budget and, when exhausted, resolves the
// machine with a Timeout failure. The budget spans all phases: a slow load
// followed by a slow selector wait shares one clock.
func (m *Machine) expired(now time.Time) bool {
	timeout := time.Duration(m.req.Options.Timeout) * time.Millisecond
	if now.Sub(m.start) < timeout {
		return false
	}
	m.fail(models.Errorf(models.ErrTimeout,
		"rendering timed out after %s in phase %s", timeout, m.phase))
	return true
}

// fail records the terminal failure. Outcomes are write-once.
func (m *Machine) fail(err *models.RenderError) {
	if m.phase == phaseDone {
		return
	}
	m.outcome = models.Failure(err)
	m.phase = phaseDone
}

// Runner executes one render request to completion.
type Runner func(ctx context.Context, req *models.RenderRequest) *models.Outcome

// RodRunner returns a Runner that drives a real browser session per request
// using the rod-backed view.
func RodRunner(cfg config.BrowserConfig, tick time.Duration) Runner {
	return func(ctx context.Context, req *models.RenderRequest) *models.Outcome {
		open := func(ctx context.Context) (webview.View, error) {
			return webview.Open(ctx, cfg, req.URL)
		}
		m := NewMachine(req, open, tick)
		outcome := m.Run(ctx)
		logOutcome(req, outcome)
		return outcome
	}
}

func logOutcome(req *models.RenderRequest, o *models.Outcome) {
	if o.OK() {
		slog.Info("render complete", "url", req.URL, "htmlBytes", len(o.HTML))
		return
	}
	slog.Warn("render failed", "url", req.URL,
		"kind", o.Err.Kind.String(), "error", o.Err.Message)
}
