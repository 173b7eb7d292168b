package model

import "time"

// Outcome classifies a single connection probe.
type Outcome int

const (
	OutcomeConnectError Outcome = iota
	OutcomeNoResponse
	OutcomeMismatch
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoResponse:
		return "no_response"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeConnectError:
		return "connect_error"
	default:
		return "unknown"
	}
}

// TestResult is produced once per orchestrated test and never mutated.
type TestResult struct {
	ServerAddress string
	Timestamp     time.Time
	Subject       Subject
	// Label overrides Subject.Label() in the results log when set.
	Label   string
	Success bool

	// Outcome is diagnostic only; the results log records Success.
	Outcome Outcome
	// Err records why the transport could not be brought up or the probe
	// failed. Nil on success.
	Err      error
	Duration time.Duration
}
