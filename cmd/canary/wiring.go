package main

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/capture"
	"github.com/torosent/canary/internal/config"
	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/probe"
	"github.com/torosent/canary/internal/results"
	"github.com/torosent/canary/internal/runner"
	"github.com/torosent/canary/internal/transport"
)

// environment holds the host checks, swapped out in tests.
type environment struct {
	privileged     func() bool
	guessInterface func() (string, error)
}

func capturePrivileged() bool { return capture.Privileged() }

func guessInterface() (string, error) {
	name, all, err := capture.GuessInterface()
	if err != nil {
		zap.S().Warnw("no capture interface found", "interfaces", all)
		return "", err
	}
	zap.S().Infow("guessed capture interface", "interface", name, "interfaces", all)
	return name, nil
}

// buildOptions turns the validated config into runner collaborators.
func buildOptions(cfg *config.Config, env environment) (runner.Options, error) {
	specs, err := cfg.SelectedTransports()
	if err != nil {
		return runner.Options{}, err
	}

	mode, err := dispatcher.ParseTerminateMode(cfg.Terminate)
	if err != nil {
		return runner.Options{}, err
	}
	launcher := dispatcher.NewLauncher(dispatcher.Options{
		Grace:      cfg.LaunchGrace,
		Terminator: dispatcher.NewTerminator(mode),
	})

	connector := transport.NewConnector(transport.Options{
		ResourcesDir:   cfg.ResourcesDir,
		ConnectTimeout: cfg.ProbeTimeout,
		Trace: func(name string, from, to transport.State) {
			zap.S().Debugw("transport state", "transport", name, "from", from.String(), "to", to.String())
		},
	})

	recorder, err := buildRecorder(cfg, env)
	if err != nil {
		return runner.Options{}, err
	}

	exe := cfg.Dispatcher
	opts := runner.Options{
		ServerIP:   cfg.ServerIP,
		Rounds:     cfg.Runs,
		Transports: specs,
		WebTargets: cfg.WebTargets,
		WebTests:   cfg.WebTests,
		Dispatcher: &runner.DispatcherPath{
			Launcher:     launcher,
			Executable:   exe,
			ResourcesDir: cfg.ResourcesDir,
			StateDir:     filepath.Join(cfg.ResourcesDir, dispatcher.DefaultStateDir),
		},
		Library:     &runner.LibraryPath{Connector: connector},
		Web:         probe.Dialer{},
		Probe:       probe.Probe{Deadline: cfg.ProbeTimeout},
		Writer:      results.NewCSVWriter(cfg.OutputDir),
		Recorder:    recorder,
		Settle:      cfg.Settle,
		CaptureTail: cfg.CaptureTail,
		Sweeper: runner.SweepFunc(func(ctx context.Context) error {
			return dispatcher.KillAllByName(ctx, filepath.Base(exe), dispatcher.DefaultSweepDelay)
		}),
	}
	if cfg.Capture {
		opts.Archiver = capture.ZipArchiver{Source: cfg.CaptureDir, DestDir: cfg.ArchiveDir}
	} else {
		opts.CaptureTail = 0
	}
	return opts, nil
}

// buildRecorder returns the capture recorder. Capture needs root; without
// it the run goes ahead unrecorded.
func buildRecorder(cfg *config.Config, env environment) (capture.Recorder, error) {
	if !cfg.Capture {
		return capture.Nop{}, nil
	}
	if !env.privileged() {
		zap.S().Warnw("traffic capture requires root; continuing without capture")
		cfg.Capture = false
		return capture.Nop{}, nil
	}
	iface := cfg.Interface
	if iface == "" {
		guessed, err := env.guessInterface()
		if err != nil {
			return nil, errors.Join(errors.New("capture is enabled but no interface was given"), err)
		}
		iface = guessed
	}
	return capture.NewCommandRecorder(capture.CommandOptions{
		Dir:       cfg.CaptureDir,
		Interface: iface,
	}), nil
}
