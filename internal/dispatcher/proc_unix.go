//go:build !windows

package dispatcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

var (
	terminateSignal os.Signal = syscall.SIGTERM
	killSignal      os.Signal = syscall.SIGKILL
)

// DefaultTerminateMode is signal-based where SIGTERM is available.
func DefaultTerminateMode() TerminateMode { return TerminateSignal }

// configureProcAttr puts the dispatcher in its own process group so a
// terminal interrupt reaches canary first and teardown stays in our hands.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalPid(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}
