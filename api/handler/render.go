package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderbridge/cache"
	"github.com/use-agent/renderbridge/content"
	"github.com/use-agent/renderbridge/fetch"
	"github.com/use-agent/renderbridge/models"
)

// Renderer is the slice of the bridge the handlers need.
type Renderer interface {
	Render(ctx context.Context, url string, opts *models.RenderOptions) (string, error)
	Stats() models.DispatchStats
}

// Render returns a handler for POST /api/v1/render.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (when maxAge is set).
//  3. Produce HTML: plain fetch, browser render, or auto (fetch first,
//     render when the body looks like a JS shell).
//  4. Convert to the requested output format, attach metadata and timing.
func Render(r Renderer, f *fetch.Fetcher, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.RenderAPIRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.RenderAPIResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()
		opts := req.RenderOptions()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL, opts, req.OutputFormat)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing.TotalMs = time.Since(totalStart).Milliseconds()
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Produce HTML ─────────────────────────────────────────
		renderStart := time.Now()
		html, method, err := produceHTML(c.Request.Context(), r, f, &req, opts)
		renderMs := time.Since(renderStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:  time.Since(totalStart).Milliseconds(),
				RenderMs: renderMs,
			})
			return
		}

		// ── 4. Convert & respond ────────────────────────────────────
		convertStart := time.Now()
		out, err := convert(html, req.URL, req.OutputFormat)
		convertMs := time.Since(convertStart).Milliseconds()
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				RenderMs:  renderMs,
				ConvertMs: convertMs,
			})
			return
		}

		resp := &models.RenderAPIResponse{
			Success:     true,
			Content:     out,
			Metadata:    content.Metadata(html, req.URL),
			FetchMethod: method,
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				RenderMs:  renderMs,
				ConvertMs: convertMs,
			},
		}

		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// produceHTML resolves the fetchMode: plain fetch, browser render, or
// fetch-then-render-if-needed.
func produceHTML(ctx context.Context, r Renderer, f *fetch.Fetcher, req *models.RenderAPIRequest, opts *models.RenderOptions) (string, string, error) {
	switch req.FetchMode {
	case "http":
		res, err := f.Fetch(ctx, req.URL)
		if err != nil {
			return "", "", err
		}
		return string(res.Body), "http", nil

	case "auto":
		res, err := f.Fetch(ctx, req.URL)
		if err == nil && !fetch.NeedsRender(res.Body) {
			return string(res.Body), "http", nil
		}
		// Static fetch insufficient; fall through to the browser, using
		// the resolved URL when the fetch at least succeeded.
		target := req.URL
		if err == nil {
			target = res.FinalURL
		}
		html, rerr := r.Render(ctx, target, opts)
		return html, "render", rerr

	default: // "render"
		html, err := r.Render(ctx, req.URL, opts)
		return html, "render", err
	}
}

// convert translates rendered HTML into the requested output format.
func convert(html, pageURL, format string) (string, error) {
	switch format {
	case "markdown":
		domain := ""
		if u, err := url.Parse(pageURL); err == nil {
			domain = u.Host
		}
		return content.ToMarkdown(html, domain)
	case "article":
		return content.Article(html, pageURL)
	default:
		return html, nil
	}
}

// respondError maps an error to the right HTTP status and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var renderErr *models.RenderError
	if !errors.As(err, &renderErr) {
		c.JSON(http.StatusBadGateway, models.RenderAPIResponse{
			Success: false,
			Error:   &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()},
			Timing:  timing,
		})
		return
	}

	c.JSON(statusForKind(renderErr.Kind), models.RenderAPIResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    renderErr.Kind.String(),
			Message: renderErr.Message,
		},
		Timing: timing,
	})
}

// statusForKind translates render error kinds to HTTP status codes.
func statusForKind(kind models.RenderErrorKind) int {
	switch kind {
	case models.ErrTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrScriptExecution:
		return http.StatusUnprocessableEntity // 422: caller-supplied script failed
	case models.ErrWindowCreation, models.ErrWebViewCreation, models.ErrProcessFailure:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
