package fetch

import (
	"strings"
	"testing"
)

func contentPage() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Long Read</title></head><body><article>")
	for i := 0; i < 30; i++ {
		b.WriteString("<p>A paragraph with enough words to count as real server-rendered content.</p>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func TestNeedsRender(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "react shell",
			body: `<html><body><div id="root"></div><script src="/bundle.js"></script></body></html>`,
			want: true,
		},
		{
			name: "vue shell",
			body: `<html><body><div id="app"></div></body></html>`,
			want: true,
		},
		{
			name: "next shell",
			body: `<html><body><div id="__next"></div></body></html>`,
			want: true,
		},
		{
			name: "noscript warning",
			body: `<html><body><noscript>Please enable JavaScript to view this site.</noscript></body></html>`,
			want: true,
		},
		{
			name: "near-empty body",
			body: `<html><body><p>Loading...</p></body></html>`,
			want: true,
		},
		{
			name: "server-rendered article",
			body: contentPage(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRender([]byte(tt.body)); got != tt.want {
				t.Errorf("NeedsRender = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsRender_ScriptHeavyThinPage(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><p>")
	b.WriteString(strings.Repeat("filler text for the shell page ", 10))
	b.WriteString("</p>")
	for i := 0; i < 12; i++ {
		b.WriteString(`<script src="/chunk.js"></script>`)
	}
	b.WriteString("</body></html>")

	if !NeedsRender([]byte(b.String())) {
		t.Error("script-heavy thin page not flagged")
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", `<html><head><title>Hello</title></head><body></body></html>`, "Hello"},
		{"whitespace trimmed", "<html><head><title>\n  Spaced  \n</title></head></html>", "Spaced"},
		{"no title", `<html><head></head><body>text</body></html>`, ""},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title([]byte(tt.body)); got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVisibleText_SkipsScriptAndStyle(t *testing.T) {
	body := `<html><body><p>kept</p><script>var hidden = 1;</script><style>.x{}</style></body></html>`
	got := visibleText([]byte(body))
	if !strings.Contains(got, "kept") {
		t.Errorf("body text lost: %q", got)
	}
	if strings.Contains(got, "hidden") || strings.Contains(got, ".x{}") {
		t.Errorf("script/style text leaked: %q", got)
	}
}
