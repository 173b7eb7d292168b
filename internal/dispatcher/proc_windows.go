//go:build windows

package dispatcher

import (
	"os"
	"os/exec"
	"strconv"
)

var (
	terminateSignal os.Signal = os.Kill
	killSignal      os.Signal = os.Kill
)

// DefaultTerminateMode sweeps by image name; Windows has no SIGTERM.
func DefaultTerminateMode() TerminateMode { return TerminateSweep }

func configureProcAttr(cmd *exec.Cmd) {}

func signalPid(pid int, force bool) error {
	args := []string{"/PID", strconv.Itoa(pid), "/T"}
	if force {
		args = append(args, "/F")
	}
	// taskkill exits non-zero when the process is already gone.
	_ = exec.Command("taskkill", args...).Run()
	return nil
}
