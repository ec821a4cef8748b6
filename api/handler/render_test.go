package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderbridge/cache"
	"github.com/use-agent/renderbridge/fetch"
	"github.com/use-agent/renderbridge/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRenderer stands in for the bridge.
type fakeRenderer struct {
	html  string
	err   error
	calls int
	urls  []string
}

func (f *fakeRenderer) Render(ctx context.Context, url string, opts *models.RenderOptions) (string, error) {
	f.calls++
	f.urls = append(f.urls, url)
	return f.html, f.err
}

func (f *fakeRenderer) Stats() models.DispatchStats {
	return models.DispatchStats{Attempts: int64(f.calls)}
}

func postRender(t *testing.T, h gin.HandlerFunc, body any) (*httptest.ResponseRecorder, models.RenderAPIResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	router.POST("/api/v1/render", h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/render", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp models.RenderAPIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v: %s", err, w.Body.String())
	}
	return w, resp
}

func TestRenderHandler_Success(t *testing.T) {
	r := &fakeRenderer{html: `<html><head><title>Rendered</title></head><body><p>hi</p></body></html>`}
	h := Render(r, fetch.New(""), nil)

	w, resp := postRender(t, h, map[string]any{"url": "http://example.test/"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success {
		t.Fatalf("expected success: %+v", resp.Error)
	}
	if !strings.Contains(resp.Content, "<p>hi</p>") {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FetchMethod != "render" {
		t.Errorf("fetch method = %q", resp.FetchMethod)
	}
	if resp.Metadata.Title != "Rendered" {
		t.Errorf("metadata title = %q", resp.Metadata.Title)
	}
	if r.calls != 1 {
		t.Errorf("renderer called %d times", r.calls)
	}
}

func TestRenderHandler_MarkdownOutput(t *testing.T) {
	r := &fakeRenderer{html: `<html><body><h1>Title</h1><p>text</p></body></html>`}
	h := Render(r, fetch.New(""), nil)

	w, resp := postRender(t, h, map[string]any{
		"url":          "http://example.test/",
		"outputFormat": "markdown",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(resp.Content, "# Title") {
		t.Errorf("markdown conversion missing: %q", resp.Content)
	}
}

func TestRenderHandler_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing url", map[string]any{}},
		{"bad url", map[string]any{"url": "not a url"}},
		{"bad fetch mode", map[string]any{"url": "http://example.test/", "fetchMode": "teleport"}},
		{"bad output format", map[string]any{"url": "http://example.test/", "outputFormat": "pdf"}},
		{"negative timeout", map[string]any{"url": "http://example.test/", "timeout": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{}
			h := Render(r, fetch.New(""), nil)

			w, resp := postRender(t, h, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("unexpected response: %+v", resp)
			}
			if r.calls != 0 {
				t.Error("renderer must not run for invalid input")
			}
		})
	}
}

func TestRenderHandler_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind   models.RenderErrorKind
		status int
	}{
		{models.ErrTimeout, http.StatusGatewayTimeout},
		{models.ErrScriptExecution, http.StatusUnprocessableEntity},
		{models.ErrWindowCreation, http.StatusBadGateway},
		{models.ErrWebViewCreation, http.StatusBadGateway},
		{models.ErrProcessFailure, http.StatusBadGateway},
		{models.ErrUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			r := &fakeRenderer{err: models.Errorf(tt.kind, "failed in test")}
			h := Render(r, fetch.New(""), nil)

			w, resp := postRender(t, h, map[string]any{"url": "http://example.test/"})

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if resp.Success {
				t.Error("failure reported as success")
			}
			if resp.Error == nil || resp.Error.Code != tt.kind.String() {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}

func TestRenderHandler_CacheHit(t *testing.T) {
	r := &fakeRenderer{html: `<html><body><p>fresh</p></body></html>`}
	cc := cache.New(10)
	h := Render(r, fetch.New(""), cc)

	body := map[string]any{"url": "http://example.test/", "maxAge": 60_000}

	_, first := postRender(t, h, body)
	if first.CacheStatus != "miss" {
		t.Errorf("first call cache status = %q", first.CacheStatus)
	}

	_, second := postRender(t, h, body)
	if second.CacheStatus != "hit" {
		t.Errorf("second call cache status = %q", second.CacheStatus)
	}
	if second.Content != first.Content {
		t.Error("cached content differs")
	}
	if r.calls != 1 {
		t.Errorf("renderer ran %d times, want 1", r.calls)
	}
}

func TestRenderHandler_HTTPMode(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<html><body><p>static page</p></body></html>`))
	}))
	defer origin.Close()

	r := &fakeRenderer{}
	h := Render(r, fetch.New(""), nil)

	w, resp := postRender(t, h, map[string]any{"url": origin.URL, "fetchMode": "http"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(resp.Content, "static page") {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FetchMethod != "http" {
		t.Errorf("fetch method = %q", resp.FetchMethod)
	}
	if r.calls != 0 {
		t.Error("http mode must not touch the renderer")
	}
}

func TestRenderHandler_AutoModeFallsBackToRender(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer origin.Close()

	r := &fakeRenderer{html: `<html><body><p>hydrated content</p></body></html>`}
	h := Render(r, fetch.New(""), nil)

	w, resp := postRender(t, h, map[string]any{"url": origin.URL, "fetchMode": "auto"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if resp.FetchMethod != "render" {
		t.Errorf("fetch method = %q", resp.FetchMethod)
	}
	if !strings.Contains(resp.Content, "hydrated content") {
		t.Errorf("content = %q", resp.Content)
	}
	if r.calls != 1 {
		t.Errorf("renderer ran %d times, want 1", r.calls)
	}
}

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	router.GET("/api/v1/health", Health(&fakeRenderer{}, time.Now().Add(-time.Minute)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Uptime == "" {
		t.Error("uptime missing")
	}
}
