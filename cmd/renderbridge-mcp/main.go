// renderbridge-mcp is a stdio MCP server exposing the render bridge to
// agent tooling. It is a thin client of the renderbridge HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/renderbridge/worker"
)

// renderRequest mirrors the renderbridge API request model.
type renderRequest struct {
	URL          string `json:"url"`
	Timeout      int    `json:"timeout,omitempty"`
	WaitFor      string `json:"waitFor,omitempty"`
	Selector     string `json:"selector,omitempty"`
	Script       string `json:"script,omitempty"`
	FetchMode    string `json:"fetchMode,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`
}

// renderResponse mirrors the renderbridge API response model.
type renderResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Metadata *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SourceURL   string `json:"sourceUrl"`
	} `json:"metadata"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	worker.MaybeRun()

	apiURL := os.Getenv("RENDERBRIDGE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RENDERBRIDGE_API_KEY")

	s := server.NewMCPServer(
		"renderbridge",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	renderTool := mcp.NewTool("render_page",
		mcp.WithDescription("Render a web page in a headless browser and return the resulting HTML or Markdown. Supports waiting for a CSS selector, extracting a single element, and running custom JavaScript before extraction."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to render"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Render timeout in milliseconds (default: 5000)"),
		),
		mcp.WithString("wait_for",
			mcp.Description("CSS selector to wait for before extracting HTML"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector to extract; returns only the first matching element's outer HTML (empty result if nothing matches)"),
		),
		mcp.WithString("script",
			mcp.Description("JavaScript to execute in the page before extraction"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'html' (default), 'markdown', or 'article' (readable content as markdown)"),
			mcp.Enum("html", "markdown", "article"),
		),
	)
	s.AddTool(renderTool, handleRenderPage(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRenderPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := renderRequest{
			URL:          url,
			Timeout:      request.GetInt("timeout", 0),
			WaitFor:      request.GetString("wait_for", ""),
			Selector:     request.GetString("selector", ""),
			Script:       request.GetString("script", ""),
			OutputFormat: request.GetString("output_format", ""),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/render", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var renderResp renderResponse
		if err := json.Unmarshal(respBody, &renderResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !renderResp.Success {
			errMsg := "render failed"
			if renderResp.Error != nil {
				errMsg = fmt.Sprintf("%s: %s", renderResp.Error.Code, renderResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(renderResp.Content), nil
	}
}
