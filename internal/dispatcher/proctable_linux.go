//go:build linux

package dispatcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// commLen is the kernel's limit on /proc/<pid>/comm, excluding the NUL.
const commLen = 15

// FindByName returns the pids of processes whose executable is called name.
func FindByName(name string) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	self := os.Getpid()
	var pids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		if processMatches(pid, name) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func processMatches(pid int, name string) bool {
	base := "/proc/" + strconv.Itoa(pid)
	comm, err := os.ReadFile(base + "/comm")
	if err != nil {
		return false
	}
	c := strings.TrimSpace(string(comm))
	if c == name {
		return !isZombie(base)
	}
	// comm is truncated; confirm long names against argv[0].
	if len(name) > commLen && c == name[:commLen] {
		cmdline, err := os.ReadFile(base + "/cmdline")
		if err != nil || len(cmdline) == 0 {
			return false
		}
		argv0 := string(bytes.SplitN(cmdline, []byte{0}, 2)[0])
		return filepath.Base(argv0) == name && !isZombie(base)
	}
	return false
}

// isZombie reports whether the process has exited but not been reaped.
func isZombie(base string) bool {
	stat, err := os.ReadFile(base + "/stat")
	if err != nil {
		return true
	}
	// state follows the parenthesised comm field
	idx := bytes.LastIndexByte(stat, ')')
	if idx < 0 || idx+2 >= len(stat) {
		return false
	}
	return stat[idx+2] == 'Z'
}
