// Package results appends test results to the dated CSV result log.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/torosent/canary/internal/model"
)

const (
	FilePrefix = "CanaryResults"
	FileExt    = ".csv"
	Header     = "TestDate, ServerIP, Transport, Success"

	fileDateLayout = "2006_01_02"
	rowDateLayout  = "2006-01-02 15:04:05 -0700"
)

// CSVWriter appends one row per result to <dir>/CanaryResults<YYYY_MM_DD>.csv.
// The header is written when the file is first created. Writers in other
// processes are serialised with an advisory lock next to the file.
type CSVWriter struct {
	dir string
	mu  sync.Mutex
}

func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// Path returns the log file that results from day t are written to.
func (w *CSVWriter) Path(t time.Time) string {
	return filepath.Join(w.dir, FilePrefix+t.UTC().Format(fileDateLayout)+FileExt)
}

// Row formats r the way it appears in the log.
func Row(r model.TestResult) string {
	label := r.Label
	if label == "" {
		label = r.Subject.Label()
	}
	return strings.Join([]string{
		r.Timestamp.UTC().Format(rowDateLayout),
		r.ServerAddress,
		label,
		strconv.FormatBool(r.Success),
	}, ", ")
}

func (w *CSVWriter) Write(r model.TestResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	path := w.Path(r.Timestamp)

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(Header)
		b.WriteByte('\n')
	}
	b.WriteString(Row(r))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	zap.S().Debugw("saved test result", "path", path, "subject", r.Subject.Name(), "success", r.Success)
	return nil
}
