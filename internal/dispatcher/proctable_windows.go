//go:build windows

package dispatcher

import (
	"bytes"
	"encoding/csv"
	"os/exec"
	"strconv"
	"strings"
)

// FindByName returns the pids of processes whose image is called name.
func FindByName(name string) ([]int, error) {
	image := name
	if !strings.HasSuffix(strings.ToLower(image), ".exe") {
		image += ".exe"
	}
	out, err := exec.Command("tasklist", "/FI", "IMAGENAME eq "+image, "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, err
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		// "INFO: No tasks are running..." is not CSV.
		return nil, nil
	}
	var pids []int
	for _, row := range rows {
		if len(row) < 2 || !strings.EqualFold(row[0], image) {
			continue
		}
		if pid, err := strconv.Atoi(row[1]); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}
