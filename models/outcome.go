package models

// Outcome is the single terminal result of one render session: either HTML
// or a typed failure, never both, never neither. There is no partial
// success; a timeout does not carry best-effort HTML.
type Outcome struct {
	HTML string
	Err  *RenderError
}

// Success builds a successful outcome. An empty string is a legitimate
// success: an extract selector that matches nothing yields "".
func Success(html string) *Outcome {
	return &Outcome{HTML: html}
}

// Failure builds a failed outcome.
func Failure(err *RenderError) *Outcome {
	return &Outcome{Err: err}
}

// OK reports whether the outcome is a success.
func (o *Outcome) OK() bool { return o.Err == nil }
