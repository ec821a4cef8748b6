package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/use-agent/renderbridge/webview"
	"github.com/ysmood/gson"
)

// Probe and extraction scripts evaluated against the page. Selector and
// script text are JSON-encoded into the snippets so arbitrary caller input
// cannot break out of the expression.

// readyProbe reports whether the readiness flag set by the init script has
// flipped.
const readyProbe = `() => window.__renderReady === true`

// selectorProbe builds a probe reporting whether sel matches any element.
func selectorProbe(sel string) string {
	return fmt.Sprintf(`() => !!document.querySelector(%s)`, jsString(sel))
}

// customScript wraps caller-supplied script text for one-shot evaluation.
// The indirect eval preserves multi-statement scripts and surfaces thrown
// errors with their original messages.
func customScript(script string) string {
	return fmt.Sprintf(`() => eval(%s)`, jsString(script))
}

// extractScript builds the HTML extraction expression. With a selector it
// returns the first match's outer HTML, or "" on a miss (a miss is not a
// failure). Without one it returns the whole document's outer HTML.
func extractScript(sel string) string {
	if sel == "" {
		return `() => document.documentElement.outerHTML`
	}
	return fmt.Sprintf(`() => {
		const el = document.querySelector(%s);
		return el ? el.outerHTML : '';
	}`, jsString(sel))
}

// jsString JSON-encodes s for safe embedding in a script.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// evalBool evaluates a probe and reports whether it produced true.
// Evaluation errors read as "not yet": probes run while the page may still
// be navigating, where transient eval failures are expected.
func evalBool(v webview.View, js string) bool {
	raw, err := v.Eval(js)
	return err == nil && strings.TrimSpace(raw) == "true"
}

// unquote strips the JSON serialization from an Eval result: quoted strings
// are unquoted and unescaped, everything else passes through as-is.
func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, `"`) {
		return raw
	}
	return gson.NewFrom(raw).Str()
}
