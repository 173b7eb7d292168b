package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/torosent/canary/internal/model"
)

// ProgressReporter prints one line per finished test.
type ProgressReporter struct {
	mu        sync.Mutex
	writer    io.Writer
	planned   int
	done      int
	successes int
}

// NewProgressReporter creates a reporter for a run of planned tests.
func NewProgressReporter(planned int, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{writer: writer, planned: planned}
}

// Result records r and prints the running tally.
func (p *ProgressReporter) Result(round int, r model.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if r.Success {
		p.successes++
	}
	status := "blocked"
	if r.Success {
		status = "allowed"
	}
	fmt.Fprintf(p.writer, "[round %d] %-12s %-8s %-14s (%s) | %d/%d done | %d ok, %d failed\n",
		round, r.Subject.Name(), status, r.Outcome.String(), r.Duration.Round(time.Millisecond),
		p.done, p.planned, p.successes, p.done-p.successes)
}

type countRow struct {
	name  string
	count int
}

func sortedCounts(counts map[string]int) []countRow {
	rows := make([]countRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, countRow{name: name, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count == rows[j].count {
			return rows[i].name < rows[j].name
		}
		return rows[i].count > rows[j].count
	})
	return rows
}
