package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/config"
	"github.com/torosent/canary/internal/output"
	"github.com/torosent/canary/internal/runner"
	"github.com/torosent/canary/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := provider.Shutdown(sctx); err != nil {
			zap.S().Warnw("tracing shutdown failed", "error", err)
		}
	}()

	opts, err := buildOptions(cfg, environment{
		privileged:     capturePrivileged,
		guessInterface: guessInterface,
	})
	if err != nil {
		return err
	}
	opts.Tracer = provider.Tracer()

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(cfg.Runs*len(opts.Transports)+webCount(cfg), os.Stdout)
		opts.Observer = progress
	}

	summary := runner.New(opts).Run(ctx)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary.Stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, summary.Stats)
	}

	// An interrupted run is a normal way to end a session.
	if summary.Interrupted {
		zap.S().Infow("stopped by signal", "completed", len(summary.Results))
	}
	return nil
}

func webCount(cfg *config.Config) int {
	if !cfg.WebTests {
		return 0
	}
	return cfg.Runs * len(cfg.WebTargets)
}
