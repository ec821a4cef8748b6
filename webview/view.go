// Package webview owns the live browser session backing one render: the
// browser process (the session's window), the page (its webview), and the
// readiness init script. A View is single-use: created for one request and
// torn down unconditionally when its state machine reaches a terminal state.
package webview

// InitScript is injected before navigation so the page carries a
// JS-visible readiness flag. Load detection is a poll of this flag rather
// than a native callback: pages that never fire load (window.stop() etc.)
// simply time out.
const InitScript = `
window.__renderReady = false;
window.addEventListener('load', () => {
	window.__renderReady = true;
});
`

// View is the evaluation surface of a live page. Eval returns the result
// JSON-serialized (a string result arrives as quoted text); callers are
// responsible for unquoting. Implementations are not safe for concurrent
// use; all evaluation for a session happens on the goroutine driving it.
type View interface {
	Eval(js string) (string, error)
	Close() error
}
