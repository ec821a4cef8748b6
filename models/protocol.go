package models

// Wire protocol between the dispatcher and a worker process. Messages are
// newline-delimited JSON objects on the worker's stdin/stdout. The exchange
// is strictly: worker sends WorkerHello, dispatcher sends WorkerRequest,
// worker sends exactly one WorkerResult and exits.

// WorkerHello is the worker→dispatcher readiness signal, sent immediately
// on startup before any request is read.
type WorkerHello struct {
	Ready bool `json:"ready"`
}

// WorkerResult is the worker→dispatcher terminal message. On failure Error
// carries the kind-tagged string form of a RenderError (see ParseRenderError).
type WorkerResult struct {
	Success bool   `json:"success"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResultFromOutcome converts a terminal Outcome to its wire form.
func ResultFromOutcome(o *Outcome) WorkerResult {
	if o.OK() {
		return WorkerResult{Success: true, HTML: o.HTML}
	}
	return WorkerResult{Success: false, Error: o.Err.Error()}
}

// OutcomeFromResult converts a wire result back to an Outcome.
func OutcomeFromResult(r WorkerResult) *Outcome {
	if r.Success {
		return Success(r.HTML)
	}
	return Failure(ParseRenderError(r.Error))
}
