package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/canary/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Canary Results ---")
	fmt.Fprintf(w, "Rounds:            %d\n", stats.Rounds)
	fmt.Fprintf(w, "Total Tests:       %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintln(w, "\nProbe Latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.Latency.Min)
	fmt.Fprintf(w, "  Max:             %s\n", stats.Latency.Max)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.Latency.Mean)
	fmt.Fprintf(w, "  P50:             %s\n", stats.Latency.P50)
	fmt.Fprintf(w, "  P90:             %s\n", stats.Latency.P90)
	fmt.Fprintf(w, "  P99:             %s\n", stats.Latency.P99)

	if len(stats.Subjects) > 0 {
		fmt.Fprintln(w, "\nSubject Breakdown:")
		for _, s := range stats.Subjects {
			kind := "transport"
			if s.WebTest {
				kind = "web"
			}
			fmt.Fprintf(
				w,
				"  - %s (%s): total=%d, successes=%d, failures=%d, p50=%s, p99=%s\n",
				s.Name,
				kind,
				s.Total,
				s.Successes,
				s.Failures,
				s.Latency.P50,
				s.Latency.P99,
			)
		}
	}

	if rows := metrics.FlattenOutcomes(stats.Subjects); len(rows) > 0 {
		fmt.Fprintln(w, "\nOutcomes:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Subject, row.Outcome, row.Count)
		}
	}

	if len(stats.Reasons) > 0 {
		fmt.Fprintln(w, "\nFailure Reasons:")
		for _, row := range sortedCounts(stats.Reasons) {
			fmt.Fprintf(w, "  %s: %d\n", row.name, row.count)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
