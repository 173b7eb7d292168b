//go:build !linux && !windows

package dispatcher

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FindByName returns the pids of processes whose executable is called name.
func FindByName(name string) ([]int, error) {
	out, err := exec.Command("pgrep", "-x", name).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// pgrep exits 1 when nothing matches.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	self := os.Getpid()
	var pids []int
	for _, line := range bytes.Split(out, []byte("\n")) {
		pid, err := strconv.Atoi(strings.TrimSpace(string(line)))
		if err != nil || pid == self {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
