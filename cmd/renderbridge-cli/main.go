// renderbridge-cli renders a single URL and writes the result to stdout.
//
// Usage:
//
//	renderbridge-cli [flags] <url>
//
// Options can come from flags or a JSON options file of the shape
// {"timeout": 5000, "waitFor": "#app", "selector": "#content", "script": "..."}.
// Flags win over the file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/use-agent/renderbridge/bridge"
	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/content"
	"github.com/use-agent/renderbridge/fetch"
	"github.com/use-agent/renderbridge/models"
	"github.com/use-agent/renderbridge/worker"
)

func main() {
	worker.MaybeRun()

	var (
		optionsPath = flag.String("config", "", "path to a JSON options file")
		timeoutMs   = flag.Int("timeout", 0, "render timeout in milliseconds (default 5000)")
		waitFor     = flag.String("wait-for", "", "CSS selector to wait for before extraction")
		selector    = flag.String("selector", "", "CSS selector to extract (outer HTML of first match)")
		script      = flag.String("script", "", "JavaScript to execute before extraction")
		format      = flag.String("format", "html", "output format: html or markdown")
		mode        = flag.String("mode", "render", "fetch mode: render, http, or auto")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: renderbridge-cli [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	target := flag.Arg(0)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	// Stdout is the document; keep logs on stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	opts, err := buildOptions(*optionsPath, *timeoutMs, *waitFor, *selector, *script)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(opts.Timeout)*time.Millisecond+cfg.Dispatch.GraceMargin+5*time.Second)
	defer cancel()

	html, method, err := produce(ctx, cfg, target, opts, *mode)
	if err != nil {
		fatal(err)
	}
	slog.Debug("content produced", "method", method)

	out := html
	if *format == "markdown" {
		domain := ""
		if u, err := url.Parse(target); err == nil {
			domain = u.Host
		}
		if out, err = content.ToMarkdown(html, domain); err != nil {
			fatal(err)
		}
	}

	fmt.Println(out)
}

// buildOptions merges the options file (if any) with flag overrides.
func buildOptions(path string, timeoutMs int, waitFor, selector, script string) (*models.RenderOptions, error) {
	opts := &models.RenderOptions{}
	if path != "" {
		loaded, err := config.LoadOptionsFile(path)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}
	if timeoutMs > 0 {
		opts.Timeout = timeoutMs
	}
	if waitFor != "" {
		opts.WaitFor = waitFor
	}
	if selector != "" {
		opts.Selector = selector
	}
	if script != "" {
		opts.Script = script
	}
	opts.Defaults()
	return opts, nil
}

// produce resolves the fetch mode: plain HTTP, always-render, or HTTP with
// a render fallback for JS-shell pages.
func produce(ctx context.Context, cfg *config.Config, target string, opts *models.RenderOptions, mode string) (string, string, error) {
	f := fetch.New(cfg.Browser.Proxy)

	switch mode {
	case "http":
		res, err := f.Fetch(ctx, target)
		if err != nil {
			return "", "", err
		}
		return string(res.Body), "http", nil

	case "auto":
		res, err := f.Fetch(ctx, target)
		if err == nil && !fetch.NeedsRender(res.Body) {
			return string(res.Body), "http", nil
		}
		if err == nil {
			target = res.FinalURL
		}
		html, rerr := bridge.New(cfg).Render(ctx, target, opts)
		return html, "render", rerr

	case "render":
		html, err := bridge.New(cfg).Render(ctx, target, opts)
		return html, "render", err

	default:
		return "", "", fmt.Errorf("unknown mode %q (want render, http, or auto)", mode)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "renderbridge-cli:", err)
	os.Exit(1)
}
