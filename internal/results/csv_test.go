package results_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/results"
)

var testDay = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func transportResult(name string, success bool, at time.Time) model.TestResult {
	return model.TestResult{
		ServerAddress: "203.0.113.7",
		Timestamp:     at,
		Subject:       model.TransportSubject(model.TransportSpec{Name: name, ListenPort: "2345"}),
		Success:       success,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestWriteCreatesFileWithHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Output")
	w := results.NewCSVWriter(dir)

	if err := w.Write(transportResult("shadow", true, testDay)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write(transportResult("Replicant", false, testDay.Add(time.Minute))); err != nil {
		t.Fatalf("second write: %v", err)
	}

	path := w.Path(testDay)
	if filepath.Base(path) != "CanaryResults2024_03_09.csv" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}

	lines := readLines(t, path)
	want := []string{
		"TestDate, ServerIP, Transport, Success",
		"2024-03-09 14:05:06 +0000, 203.0.113.7, shadow, true",
		"2024-03-09 14:06:06 +0000, 203.0.113.7, Replicant, false",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWebResultLabelledByURL(t *testing.T) {
	r := model.TestResult{
		ServerAddress: "203.0.113.7",
		Timestamp:     testDay,
		Subject:       model.WebSubject(model.WebTarget{Name: "cnn", URL: "https://www.cnn.com/", Port: "443"}),
		Success:       true,
	}
	if got := results.Row(r); got != "2024-03-09 14:05:06 +0000, 203.0.113.7, https://www.cnn.com/, true" {
		t.Fatalf("Row() = %q", got)
	}
}

func TestWriteSplitsFilesByDay(t *testing.T) {
	dir := t.TempDir()
	w := results.NewCSVWriter(dir)
	next := testDay.Add(24 * time.Hour)

	if err := w.Write(transportResult("shadow", true, testDay)); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(transportResult("shadow", true, next)); err != nil {
		t.Fatal(err)
	}
	for _, day := range []time.Time{testDay, next} {
		lines := readLines(t, w.Path(day))
		if len(lines) != 2 || lines[0] != results.Header {
			t.Fatalf("%s: unexpected content %q", w.Path(day), lines)
		}
	}
}

func TestConcurrentWritersShareOneHeader(t *testing.T) {
	dir := t.TempDir()
	writers := []*results.CSVWriter{results.NewCSVWriter(dir), results.NewCSVWriter(dir)}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := writers[i%2].Write(transportResult("obfs4", i%3 == 0, testDay)); err != nil {
				t.Errorf("write %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	lines := readLines(t, writers[0].Path(testDay))
	if len(lines) != 21 {
		t.Fatalf("expected header plus 20 rows, got %d lines", len(lines))
	}
	headers := 0
	for _, line := range lines {
		if line == results.Header {
			headers++
		}
	}
	if headers != 1 {
		t.Fatalf("expected one header, got %d", headers)
	}
}
