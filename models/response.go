package models

// RenderAPIRequest is the payload for POST /api/v1/render.
type RenderAPIRequest struct {
	// URL is the target page to render. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the render budget in milliseconds. Default: 5000.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// WaitFor is a CSS selector to wait for before extraction.
	WaitFor string `json:"waitFor,omitempty"`

	// Selector extracts only the first matching element's outer HTML.
	Selector string `json:"selector,omitempty"`

	// Script is JavaScript executed once before extraction.
	Script string `json:"script,omitempty"`

	// FetchMode controls the fetching strategy.
	// "render" (default): always drive a browser session.
	// "http": plain HTTP fetch, no rendering.
	// "auto": HTTP first, render only when the body looks like a JS shell.
	FetchMode string `json:"fetchMode,omitempty" binding:"omitempty,oneof=render http auto"`

	// OutputFormat controls the response content format.
	// Allowed: "html" (default), "markdown", "article".
	OutputFormat string `json:"outputFormat,omitempty" binding:"omitempty,oneof=html markdown article"`

	// MaxAge enables the response cache: serve a cached render younger than
	// this many milliseconds. 0 disables caching for the request.
	MaxAge int `json:"maxAge,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *RenderAPIRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeoutMs
	}
	if r.FetchMode == "" {
		r.FetchMode = "render"
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "html"
	}
}

// Options extracts the render options from the API request.
func (r *RenderAPIRequest) RenderOptions() *RenderOptions {
	return &RenderOptions{
		Timeout:  r.Timeout,
		WaitFor:  r.WaitFor,
		Selector: r.Selector,
		Script:   r.Script,
	}
}

// RenderAPIResponse is the response for POST /api/v1/render.
type RenderAPIResponse struct {
	Success bool `json:"success"`

	// Content is the rendered output in the requested format.
	Content string `json:"content"`

	// Metadata holds page-level information extracted from the result.
	Metadata PageMetadata `json:"metadata"`

	// FetchMethod records how the content was produced: "render" or "http".
	FetchMethod string `json:"fetchMethod,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cacheStatus,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// PageMetadata is extracted from the rendered document.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"sourceUrl"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs   int64 `json:"totalMs"`
	RenderMs  int64 `json:"renderMs"`
	ConvertMs int64 `json:"convertMs,omitempty"`
}

// ErrorDetail is the structured error in API responses. Code is the bare
// RenderErrorKind name (e.g. "Timeout", "ScriptExecution") or a request
// validation code.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Non-render API error codes.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string        `json:"status"`
	Uptime   string        `json:"uptime"`
	Dispatch DispatchStats `json:"dispatch"`
	Version  string        `json:"version"`
}

// DispatchStats reports the dispatcher's process-wide counters.
type DispatchStats struct {
	// Attempts is the number of renders dispatched since process start.
	Attempts int64 `json:"attempts"`

	// WorkerRenders is the number of renders delegated to worker processes.
	WorkerRenders int64 `json:"workerRenders"`
}
