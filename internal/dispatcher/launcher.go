package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGrace is how long a freshly spawned dispatcher must stay up.
const DefaultGrace = 2 * time.Second

// Handle is a running dispatcher process. The process is reaped in the
// background; Done is closed once it has exited.
type Handle struct {
	cmd  *exec.Cmd
	name string
	done chan struct{}
	err  error
}

func (h *Handle) Pid() int {
	if h == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Name is the executable base name, used by kill-by-name sweeps.
func (h *Handle) Name() string { return h.name }

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitErr is the result of waiting on the process. Only valid after Done.
func (h *Handle) ExitErr() error { return h.err }

func (h *Handle) signal(sig os.Signal) error {
	if !h.Alive() {
		return nil
	}
	err := h.cmd.Process.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// waitExit blocks until the process exits, the timeout elapses or ctx ends.
func (h *Handle) waitExit(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return !h.Alive()
	}
}

// Options configure a Launcher.
type Options struct {
	Grace      time.Duration // wait before the liveness check; 0 uses DefaultGrace
	Terminator Terminator    // nil uses DefaultTerminator()
}

// Launcher starts and stops the dispatcher. At most one handle is live.
type Launcher struct {
	mu     sync.Mutex
	opt    Options
	handle *Handle
}

func NewLauncher(opt Options) *Launcher {
	if opt.Grace <= 0 {
		opt.Grace = DefaultGrace
	}
	if opt.Terminator == nil {
		opt.Terminator = DefaultTerminator()
	}
	return &Launcher{opt: opt}
}

// Launch replaces any running dispatcher with a new one and reports
// whether it is still alive after the grace period. A nil error means the
// process is running.
func (l *Launcher) Launch(ctx context.Context, path string, args []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		zap.S().Debugw("replacing running dispatcher", "pid", l.handle.Pid())
		l.stopLocked(ctx)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LaunchError{Path: path, Err: ErrExecutableNotFound}
		}
		return &LaunchError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &LaunchError{Path: path, Err: fmt.Errorf("%w: %s is a directory", ErrExecutableNotFound, path)}
	}

	cmd := exec.Command(path, args...)
	// nil stdout/stderr go to the null device.
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureProcAttr(cmd)

	zap.S().Infow("launching dispatcher", "path", path, "args", args)
	if err := cmd.Start(); err != nil {
		return &LaunchError{Path: path, Err: err}
	}

	h := &Handle{cmd: cmd, name: filepath.Base(path), done: make(chan struct{})}
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()
	l.handle = h

	timer := time.NewTimer(l.opt.Grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-h.done:
	case <-ctx.Done():
		l.stopLocked(context.WithoutCancel(ctx))
		return &LaunchError{Path: path, Err: ctx.Err()}
	}

	if !h.Alive() {
		zap.S().Warnw("dispatcher exited during start-up", "path", path, "error", h.err)
		l.handle = nil
		if h.err != nil {
			return &LaunchError{Path: path, Err: fmt.Errorf("%w: %v", ErrNotAlive, h.err)}
		}
		return &LaunchError{Path: path, Err: ErrNotAlive}
	}
	return nil
}

// Stop terminates the running dispatcher, if any. It is safe to call
// repeatedly. Teardown failures are logged and returned but the handle is
// always cleared.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(ctx)
}

func (l *Launcher) stopLocked(ctx context.Context) error {
	h := l.handle
	if h == nil {
		return nil
	}
	l.handle = nil
	zap.S().Debugw("stopping dispatcher", "pid", h.Pid())
	if err := l.opt.Terminator.Terminate(ctx, h); err != nil {
		zap.S().Warnw("dispatcher teardown incomplete", "pid", h.Pid(), "error", err)
		return err
	}
	return nil
}

// Running reports whether a dispatcher handle is held and alive.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle != nil && l.handle.Alive()
}

// Pid returns the running dispatcher's pid or 0.
func (l *Launcher) Pid() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle.Pid()
}
