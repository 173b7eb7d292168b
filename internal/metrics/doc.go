// Package metrics aggregates canary test results for the run summary.
//
// The [Collector] is fed every [model.TestResult] the run produces and
// keeps, per subject and overall:
//   - test counts (total, successes, failures)
//   - a probe latency histogram (P50, P90, P99)
//   - outcome counts (success, no_response, mismatch, connect_error)
//   - failure reasons, named by [FailureReason]
//
// It is safe for concurrent use.
package metrics
