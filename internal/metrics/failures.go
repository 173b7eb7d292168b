package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/transport"
)

var friendlyAliases = map[string]string{
	"*net.OpError":                   "Network operation error",
	"net.OpError":                    "Network operation error",
	"*os.SyscallError":               "System call error",
	"*context.deadlineExceededError": "Context deadline exceeded",
	"context.deadlineExceededError":  "Context deadline exceeded",
}

var knownFailures = []struct {
	err  error
	name string
}{
	{dispatcher.ErrExecutableNotFound, "Dispatcher not found"},
	{dispatcher.ErrOptionsFileMissing, "Options file missing"},
	{dispatcher.ErrNotAlive, "Dispatcher exited early"},
	{transport.ErrUnsupported, "Transport unsupported"},
	{transport.ErrCancelled, "Cancelled"},
	{context.Canceled, "Cancelled"},
	{context.DeadlineExceeded, "Context deadline exceeded"},
}

// FailureReason names why a test failed. Results without an error are
// named after their probe outcome.
func FailureReason(r model.TestResult) string {
	if r.Err == nil {
		switch r.Outcome {
		case model.OutcomeNoResponse:
			return "No response"
		case model.OutcomeMismatch:
			return "Unexpected response"
		case model.OutcomeConnectError:
			return "Connect error"
		default:
			return "Unknown error"
		}
	}
	for _, known := range knownFailures {
		if errors.Is(r.Err, known.err) {
			return known.name
		}
	}
	var cfgErr *transport.ConfigError
	if errors.As(r.Err, &cfgErr) {
		return "Transport config invalid"
	}
	return FriendlyErrorName(fmt.Sprintf("%T", r.Err))
}

// FriendlyErrorName returns a human-friendly label for a Go error type.
func FriendlyErrorName(typeName string) string {
	cleaned := strings.TrimSpace(typeName)
	if cleaned == "" {
		return "Unknown error"
	}

	if alias, ok := friendlyAliases[cleaned]; ok {
		return alias
	}

	cleaned = strings.TrimPrefix(cleaned, "*")
	if alias, ok := friendlyAliases[cleaned]; ok {
		return alias
	}
	if idx := strings.LastIndex(cleaned, "/"); idx != -1 {
		cleaned = cleaned[idx+1:]
	}

	pkg := ""
	name := cleaned
	if idx := strings.Index(name, "."); idx != -1 {
		pkg = name[:idx]
		name = name[idx+1:]
	}

	pretty := humanizeTypeName(name)
	if pretty == "" {
		pretty = name
	}

	// Wrapped errors from fmt.Errorf carry no useful type name.
	if pkg == "fmt" || pkg == "errors" {
		return "Error"
	}
	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", pretty, pkg)
	}
	return pretty
}

func humanizeTypeName(name string) string {
	if name == "" {
		return ""
	}

	var words []string
	var current []rune
	runes := []rune(name)

	appendWord := func() {
		if len(current) == 0 {
			return
		}
		word := string(current)
		if isAllUpper(word) {
			words = append(words, word)
		} else {
			words = append(words, capitalize(word))
		}
		current = current[:0]
	}

	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsUpper(r) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower)) {
				appendWord()
			} else if unicode.IsDigit(r) && !unicode.IsDigit(prev) {
				appendWord()
			}
		}
		current = append(current, r)
	}
	appendWord()

	return strings.Join(words, " ")
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	runes := []rune(lower)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
