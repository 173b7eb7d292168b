package capture

import (
	"context"

	"github.com/torosent/canary/internal/model"
)

// Label classifies a finished capture.
type Label string

const (
	LabelAllowed    Label = "allowed"
	LabelBlocked    Label = "blocked"
	LabelIncomplete Label = "incomplete"
)

// LabelFor maps a test result to a capture label. A nil result means the
// test never finished.
func LabelFor(result *model.TestResult) Label {
	switch {
	case result == nil:
		return LabelIncomplete
	case result.Success:
		return LabelAllowed
	default:
		return LabelBlocked
	}
}

// Recorder captures traffic around a single test.
type Recorder interface {
	Start(ctx context.Context, subject model.Subject, server string) error
	Stop(ctx context.Context, result *model.TestResult) error
}

// Nop records nothing.
type Nop struct{}

func (Nop) Start(context.Context, model.Subject, string) error { return nil }
func (Nop) Stop(context.Context, *model.TestResult) error      { return nil }
