//go:build !windows

package dispatcher_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/torosent/canary/internal/dispatcher"
)

// sleeper copies the system sleep binary under a unique name so tests can
// find it in the process table without touching unrelated processes.
func sleeper(t *testing.T, name string) string {
	t.Helper()
	src, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		t.Skipf("cannot read %s: %v", src, err)
	}
	dst := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(dst, data, 0o755); err != nil {
		t.Fatalf("write sleeper: %v", err)
	}
	return dst
}

func pidAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func newLauncher(term dispatcher.Terminator) *dispatcher.Launcher {
	return dispatcher.NewLauncher(dispatcher.Options{Grace: 50 * time.Millisecond, Terminator: term})
}

func TestLaunchMissingExecutable(t *testing.T) {
	l := newLauncher(nil)
	err := l.Launch(context.Background(), filepath.Join(t.TempDir(), "no-such-dispatcher"), nil)
	if !errors.Is(err, dispatcher.ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
	if l.Running() {
		t.Fatal("nothing should be running")
	}
}

func TestLaunchAndStop(t *testing.T) {
	l := newLauncher(dispatcher.SignalTerminator{Wait: time.Second})
	if err := l.Launch(context.Background(), sleeper(t, "canary-sleep-a"), []string{"30"}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	pid := l.Pid()
	if !l.Running() || pid == 0 {
		t.Fatal("expected dispatcher to be running")
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pidAlive(pid) {
		t.Fatalf("pid %d still alive after Stop", pid)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}

func TestLaunchReplacesRunningProcess(t *testing.T) {
	l := newLauncher(dispatcher.SignalTerminator{Wait: time.Second})
	path := sleeper(t, "canary-sleep-b")
	if err := l.Launch(context.Background(), path, []string{"30"}); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	first := l.Pid()
	if err := l.Launch(context.Background(), path, []string{"30"}); err != nil {
		t.Fatalf("second Launch: %v", err)
	}
	defer l.Stop(context.Background())
	if pidAlive(first) {
		t.Fatalf("first dispatcher pid %d survived relaunch", first)
	}
	if l.Pid() == first {
		t.Fatal("expected a new pid")
	}
}

func TestLaunchReportsEarlyExit(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	l := newLauncher(nil)
	err = l.Launch(context.Background(), falseBin, nil)
	if !errors.Is(err, dispatcher.ErrNotAlive) {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
	if l.Running() {
		t.Fatal("exited dispatcher must not be held")
	}
}

func TestSweepTerminatorLeavesNoProcess(t *testing.T) {
	const name = "canary-sleep-sweep"
	l := newLauncher(dispatcher.SweepTerminator{Delay: 100 * time.Millisecond})
	if err := l.Launch(context.Background(), sleeper(t, name), []string{"30"}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	pids, err := dispatcher.FindByName(name)
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(pids) != 1 {
		t.Fatalf("expected one process named %s, got %v", name, pids)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	pids, err = dispatcher.FindByName(name)
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(pids) != 0 {
		t.Fatalf("processes remain after sweep: %v", pids)
	}
}

func TestKillAllByNameToleratesNoProcess(t *testing.T) {
	if err := dispatcher.KillAllByName(context.Background(), "canary-not-running-anywhere", 10*time.Millisecond); err != nil {
		t.Fatalf("expected nil for absent process, got %v", err)
	}
}

func TestKillAllByNameEscalates(t *testing.T) {
	const name = "canary-sleep-stubborn"
	path := sleeper(t, name)
	// Ignore SIGTERM so only the forced sweep can stop it.
	cmd := exec.Command("/bin/sh", "-c", "trap '' TERM; exec "+path+" 30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start shell: %v", err)
	}
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	if err := dispatcher.KillAllByName(context.Background(), name, 100*time.Millisecond); err != nil {
		t.Fatalf("KillAllByName: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process survived forced sweep")
	}
}
