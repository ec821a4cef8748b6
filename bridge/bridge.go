// Package bridge is the externally consumed entry point: give it a
// pre-resolved URL and options, get back the rendered HTML or a typed,
// tag-prefixed error.
package bridge

import (
	"context"

	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/dispatch"
	"github.com/use-agent/renderbridge/models"
	"github.com/use-agent/renderbridge/render"
)

// Bridge renders pages through the dispatcher. Safe for concurrent use:
// concurrent calls each get their own session or worker process, and share
// nothing but the dispatcher's atomic attempt counter.
type Bridge struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
}

// New creates a Bridge that drives real browser sessions.
func New(cfg *config.Config) *Bridge {
	runner := render.RodRunner(cfg.Browser, cfg.Render.TickInterval)
	return NewWithDispatcher(cfg, dispatch.New(cfg.Dispatch, runner))
}

// NewWithDispatcher creates a Bridge over a caller-supplied dispatcher.
func NewWithDispatcher(cfg *config.Config, d *dispatch.Dispatcher) *Bridge {
	return &Bridge{cfg: cfg, dispatcher: d}
}

// Render loads url in a single-use browser session, applies the options,
// and returns the extracted HTML. On failure the error message is prefixed
// with the error-kind tag (e.g. "TimeoutError: ...") so callers can match
// on category with a substring check.
func (b *Bridge) Render(ctx context.Context, url string, opts *models.RenderOptions) (string, error) {
	req := models.NewRenderRequest(url, opts)
	if max := b.cfg.Render.MaxTimeout.Milliseconds(); max > 0 && int64(req.Options.Timeout) > max {
		req.Options.Timeout = int(max)
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	return b.dispatcher.Dispatch(ctx, req)
}

// Result carries one asynchronous render outcome.
type Result struct {
	HTML string
	Err  error
}

// RenderAsync is Render bridged over a one-shot channel, for callers that
// want a future instead of a blocking call. The channel receives exactly
// one Result and is then closed.
func (b *Bridge) RenderAsync(ctx context.Context, url string, opts *models.RenderOptions) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		html, err := b.Render(ctx, url, opts)
		out <- Result{HTML: html, Err: err}
	}()
	return out
}

// Stats exposes the dispatcher's process-wide counters.
func (b *Bridge) Stats() models.DispatchStats {
	return b.dispatcher.Stats()
}
