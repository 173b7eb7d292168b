package runner

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/probe"
)

// ProcessLauncher is the part of *dispatcher.Launcher the dispatcher path
// needs.
type ProcessLauncher interface {
	Launch(ctx context.Context, path string, args []string) error
	Stop(ctx context.Context) error
}

// StreamDialer opens the stream to the dispatcher's local proxy.
type StreamDialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// DispatcherPath brings a transport up by launching the external
// dispatcher and connecting to its local proxy listener.
type DispatcherPath struct {
	Launcher     ProcessLauncher
	Executable   string
	ResourcesDir string
	StateDir     string
	ListenAddr   string // defaults to dispatcher.DefaultListenAddr
	LogLevel     string
	Dialer       StreamDialer // defaults to probe.Dialer{}
}

func (p *DispatcherPath) Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error) {
	listen := p.ListenAddr
	if listen == "" {
		listen = dispatcher.DefaultListenAddr
	}
	args, err := dispatcher.BuildArgs(dispatcher.ArgsInput{
		ServerIP:     serverIP,
		Transport:    spec,
		ResourcesDir: p.ResourcesDir,
		StateDir:     p.StateDir,
		ListenAddr:   listen,
		LogLevel:     p.LogLevel,
	})
	if err != nil {
		return nil, &SetupError{Subject: spec.Name, Err: err}
	}

	zap.S().Debugw("launching dispatcher", "transport", spec.Name, "exe", p.Executable, "args", args)
	if err := p.Launcher.Launch(ctx, p.Executable, args); err != nil {
		if errors.Is(err, dispatcher.ErrExecutableNotFound) {
			return nil, &SetupError{Subject: spec.Name, Err: err}
		}
		return nil, err
	}

	var d StreamDialer = probe.Dialer{}
	if p.Dialer != nil {
		d = p.Dialer
	}
	conn, err := d.Dial(ctx, listen)
	if err != nil {
		return nil, fmt.Errorf("connect to dispatcher proxy %s: %w", listen, err)
	}
	return conn, nil
}

func (p *DispatcherPath) Teardown(ctx context.Context) error {
	return p.Launcher.Stop(ctx)
}

// Connector is the part of *transport.Connector the library path needs.
type Connector interface {
	Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error)
}

// LibraryPath brings a transport up in-process. There is no process to
// tear down; closing the stream releases everything.
type LibraryPath struct {
	Connector Connector
}

func (p *LibraryPath) Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error) {
	return p.Connector.Establish(ctx, spec, serverIP)
}

func (p *LibraryPath) Teardown(context.Context) error { return nil }
