package webview

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/models"
)

// rodView drives a dedicated headless Chromium instance for one render.
// One browser per session: views are never pooled or reused, so Close can
// tear the whole process down without bookkeeping.
type rodView struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Open launches a browser, creates a page with the readiness init script
// installed, and starts navigation to url. Failures are classified:
// launching or connecting to the browser is a WindowCreation error; page
// creation, script installation, and navigation are WebViewCreation errors.
func Open(ctx context.Context, cfg config.BrowserConfig, url string) (View, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewRenderError(models.ErrWindowCreation, err.Error(), err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewRenderError(models.ErrWindowCreation, err.Error(), err)
	}

	v := &rodView{launcher: l, browser: browser}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		v.Close()
		return nil, models.NewRenderError(models.ErrWebViewCreation, err.Error(), err)
	}
	v.page = page.Context(ctx)

	// Init scripts must be installed before Navigate or the flag never
	// exists on the target page.
	if _, err := v.page.EvalOnNewDocument(InitScript); err != nil {
		v.Close()
		return nil, models.NewRenderError(models.ErrWebViewCreation, err.Error(), err)
	}
	if cfg.Stealth {
		if _, err := v.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if err := v.page.Navigate(url); err != nil {
		v.Close()
		return nil, models.NewRenderError(models.ErrWebViewCreation, err.Error(), err)
	}

	return v, nil
}

// Eval evaluates js against the page and returns the result serialized as
// JSON text.
func (v *rodView) Eval(js string) (string, error) {
	res, err := v.page.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.JSON("", ""), nil
}

// Close releases the page, the browser connection, and the browser process.
// Safe to call more than once.
func (v *rodView) Close() error {
	if v.page != nil {
		_ = v.page.Close()
		v.page = nil
	}
	if v.browser != nil {
		_ = v.browser.Close()
		v.browser = nil
	}
	if v.launcher != nil {
		v.launcher.Kill()
		v.launcher = nil
	}
	return nil
}
