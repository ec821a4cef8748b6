package worker

import (
	"log/slog"
	"os"

	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/render"
)

// MaybeRun takes over the process when it was spawned as a render worker,
// and never returns in that case. Every binary embedding the bridge calls
// this first thing in main, before any other initialization.
func MaybeRun() {
	if !IsWorkerProcess() {
		return
	}

	cfg := config.Load()

	// Stdout carries the wire protocol; logging must go to stderr.
	level := slog.LevelInfo
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	runner := render.RodRunner(cfg.Browser, cfg.Render.TickInterval)
	os.Exit(Run(os.Stdin, os.Stdout, runner))
}
