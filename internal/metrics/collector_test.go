package metrics_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/metrics"
	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/transport"
)

var (
	shadow = model.TransportSubject(model.TransportSpec{Name: "shadow", ListenPort: "2345"})
	obfs4  = model.TransportSubject(model.TransportSpec{Name: "obfs4", ListenPort: "1234"})
	cnn    = model.WebSubject(model.WebTarget{Name: "cnn", URL: "https://www.cnn.com/", Port: "443"})
)

func result(s model.Subject, outcome model.Outcome, d time.Duration, err error) model.TestResult {
	return model.TestResult{
		Subject:  s,
		Success:  outcome == model.OutcomeSuccess,
		Outcome:  outcome,
		Duration: d,
		Err:      err,
	}
}

func TestCollectorAggregatesPerSubject(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(result(shadow, model.OutcomeSuccess, 10*time.Millisecond, nil))
	c.Record(result(obfs4, model.OutcomeNoResponse, 30*time.Millisecond, nil))
	c.Record(result(shadow, model.OutcomeMismatch, 20*time.Millisecond, nil))
	c.Record(result(cnn, model.OutcomeSuccess, 40*time.Millisecond, nil))
	c.RoundDone()

	stats := c.Stats(time.Second)
	if stats.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", stats.Rounds)
	}
	if stats.Total != 4 || stats.Successes != 2 || stats.Failures != 2 {
		t.Fatalf("totals = %d/%d/%d, want 4/2/2", stats.Total, stats.Successes, stats.Failures)
	}
	if stats.Outcomes["success"] != 2 || stats.Outcomes["no_response"] != 1 || stats.Outcomes["mismatch"] != 1 {
		t.Errorf("Outcomes = %v", stats.Outcomes)
	}
	if stats.Latency.Min != 10*time.Millisecond || stats.Latency.Max != 40*time.Millisecond {
		t.Errorf("Latency min/max = %s/%s", stats.Latency.Min, stats.Latency.Max)
	}
	if stats.Latency.Mean != 25*time.Millisecond {
		t.Errorf("Latency mean = %s, want 25ms", stats.Latency.Mean)
	}

	if len(stats.Subjects) != 3 {
		t.Fatalf("expected 3 subjects, got %d", len(stats.Subjects))
	}
	order := []string{"shadow", "obfs4", "cnn"}
	for i, name := range order {
		if stats.Subjects[i].Name != name {
			t.Fatalf("subject %d = %s, want %s", i, stats.Subjects[i].Name, name)
		}
	}
	sh := stats.Subjects[0]
	if sh.Total != 2 || sh.Successes != 1 || sh.Failures != 1 {
		t.Errorf("shadow totals = %+v", sh)
	}
	web := stats.Subjects[2]
	if !web.WebTest || web.Label != "https://www.cnn.com/" {
		t.Errorf("cnn subject = %+v", web)
	}
	if stats.Reasons["No response"] != 1 || stats.Reasons["Unexpected response"] != 1 {
		t.Errorf("Reasons = %v", stats.Reasons)
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := metrics.NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := model.OutcomeSuccess
			if i%5 == 0 {
				outcome = model.OutcomeConnectError
			}
			c.Record(result(shadow, outcome, time.Duration(i+1)*time.Millisecond, nil))
		}(i)
	}
	wg.Wait()

	stats := c.Stats(time.Second)
	if stats.Total != 50 || stats.Failures != 10 {
		t.Fatalf("totals = %d/%d, want 50/10", stats.Total, stats.Failures)
	}
	if stats.Latency.P99 < stats.Latency.P50 {
		t.Errorf("P99 %s < P50 %s", stats.Latency.P99, stats.Latency.P50)
	}
}

func TestStatsJSONFields(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(result(shadow, model.OutcomeSuccess, 5*time.Millisecond, nil))
	data, err := json.Marshal(c.Stats(2 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"rounds", "total", "successes", "failures", "outcomes", "latency", "duration_ms", "subjects"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
	if _, ok := decoded["failure_reasons"]; ok {
		t.Errorf("failure_reasons should be omitted without failures")
	}
}

func TestFailureReason(t *testing.T) {
	cases := []struct {
		name string
		r    model.TestResult
		want string
	}{
		{"no response", result(shadow, model.OutcomeNoResponse, 0, nil), "No response"},
		{"mismatch", result(shadow, model.OutcomeMismatch, 0, nil), "Unexpected response"},
		{"connect", result(shadow, model.OutcomeConnectError, 0, nil), "Connect error"},
		{"missing exe", result(shadow, model.OutcomeConnectError, 0, &dispatcher.LaunchError{Path: "x", Err: dispatcher.ErrExecutableNotFound}), "Dispatcher not found"},
		{"options", result(shadow, model.OutcomeConnectError, 0, fmt.Errorf("obfs4: %w", dispatcher.ErrOptionsFileMissing)), "Options file missing"},
		{"unsupported", result(shadow, model.OutcomeConnectError, 0, fmt.Errorf("Replicant: %w", transport.ErrUnsupported)), "Transport unsupported"},
		{"config", result(shadow, model.OutcomeConnectError, 0, &transport.ConfigError{Transport: "shadow", Err: errors.New("bad")}), "Transport config invalid"},
		{"wrapped", result(shadow, model.OutcomeConnectError, 0, fmt.Errorf("dial: %w", errors.New("refused"))), "Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := metrics.FailureReason(tc.r); got != tc.want {
				t.Fatalf("FailureReason() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFriendlyErrorName(t *testing.T) {
	cases := map[string]string{
		"":                            "Unknown error",
		"*net.OpError":                "Network operation error",
		"*shadowsocks.SaltGenerator":  "Salt Generator (shadowsocks)",
		"*github.com/x/y.HTTPTimeout": "HTTP Timeout (y)",
	}
	for in, want := range cases {
		if got := metrics.FriendlyErrorName(in); got != want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlattenOutcomes(t *testing.T) {
	rows := metrics.FlattenOutcomes([]metrics.SubjectStats{
		{Name: "shadow", Outcomes: map[string]int{"success": 1, "no_response": 3}},
		{Name: "obfs4", Outcomes: map[string]int{"success": 3}},
	})
	want := []metrics.OutcomeBucket{
		{Subject: "obfs4", Outcome: "success", Count: 3},
		{Subject: "shadow", Outcome: "no_response", Count: 3},
		{Subject: "shadow", Outcome: "success", Count: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}
