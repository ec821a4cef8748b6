package models

import (
	"fmt"
	"net/url"

	"github.com/andybalholm/cascadia"
)

// DefaultTimeoutMs is the render timeout applied when the caller does not
// set one.
const DefaultTimeoutMs = 5000

// RenderOptions controls a single render. All fields are optional; Timeout
// falls back to DefaultTimeoutMs. The same shape is used for the CLI options
// file and the dispatcher↔worker wire protocol, so the JSON tags are part of
// the external contract.
type RenderOptions struct {
	// Timeout is the maximum render duration in milliseconds.
	Timeout int `json:"timeout,omitempty"`

	// WaitFor is a CSS selector the page must contain before extraction.
	WaitFor string `json:"waitFor,omitempty"`

	// Selector restricts extraction to the first matching element's outer
	// HTML. When it matches nothing the render still succeeds with "".
	Selector string `json:"selector,omitempty"`

	// Script is JavaScript executed once after the page is ready (and after
	// WaitFor is satisfied), before extraction.
	Script string `json:"script,omitempty"`
}

// Defaults applies default values to unset fields.
func (o *RenderOptions) Defaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeoutMs
	}
}

// RenderRequest is one unit of render work: a pre-resolved URL plus options.
// It is immutable once constructed and owned by whichever execution context
// (in-process call or worker process) drives it.
type RenderRequest struct {
	URL     string        `json:"url"`
	Options RenderOptions `json:"options"`
}

// NewRenderRequest builds a request with defaults applied.
func NewRenderRequest(rawURL string, opts *RenderOptions) *RenderRequest {
	req := &RenderRequest{URL: rawURL}
	if opts != nil {
		req.Options = *opts
	}
	req.Options.Defaults()
	return req
}

// Validate rejects requests that could never render: empty or unparsable
// URLs and malformed CSS selectors. Selector syntax is checked up front with
// cascadia so a bad selector fails fast instead of burning a whole session
// waiting on a query that can never match.
func (r *RenderRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("render: url is required")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("render: invalid url %q: %w", r.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("render: unsupported url scheme %q", u.Scheme)
	}
	if r.Options.Timeout <= 0 {
		return fmt.Errorf("render: timeout must be positive, got %d", r.Options.Timeout)
	}
	if r.Options.WaitFor != "" {
		if _, err := cascadia.Parse(r.Options.WaitFor); err != nil {
			return fmt.Errorf("render: invalid waitFor selector %q: %w", r.Options.WaitFor, err)
		}
	}
	if r.Options.Selector != "" {
		if _, err := cascadia.Parse(r.Options.Selector); err != nil {
			return fmt.Errorf("render: invalid selector %q: %w", r.Options.Selector, err)
		}
	}
	return nil
}
