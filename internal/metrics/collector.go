package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/canary/internal/model"
)

// Collector records per-test metrics in a thread-safe manner.
type Collector struct {
	mu       sync.Mutex
	overall  *tally
	subjects map[string]*tally
	order    []string
	failures map[string]int64
	rounds   int
}

type tally struct {
	label     string
	webTest   bool
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	min       time.Duration
	max       time.Duration
	sum       time.Duration
	outcomes  map[string]int64
}

func newTally(label string, webTest bool) *tally {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &tally{
		label:    label,
		webTest:  webTest,
		hist:     hdrhistogram.New(1, 60_000_000, 3),
		outcomes: make(map[string]int64),
	}
}

func (t *tally) record(r model.TestResult) {
	if r.Duration > 0 {
		us := r.Duration.Microseconds()
		if us < t.hist.LowestTrackableValue() {
			us = t.hist.LowestTrackableValue()
		}
		if us > t.hist.HighestTrackableValue() {
			us = t.hist.HighestTrackableValue()
		}
		_ = t.hist.RecordValue(us)
	}
	t.sum += r.Duration
	if t.min == 0 || r.Duration < t.min {
		t.min = r.Duration
	}
	if r.Duration > t.max {
		t.max = r.Duration
	}
	if r.Success {
		t.successes++
	} else {
		t.failures++
	}
	t.outcomes[r.Outcome.String()]++
}

// Latency holds millisecond and duration forms of the latency figures.
type Latency struct {
	Min    time.Duration `json:"-"`
	Max    time.Duration `json:"-"`
	Mean   time.Duration `json:"-"`
	P50    time.Duration `json:"-"`
	P90    time.Duration `json:"-"`
	P99    time.Duration `json:"-"`
	MinMs  float64       `json:"min_ms"`
	MaxMs  float64       `json:"max_ms"`
	MeanMs float64       `json:"mean_ms"`
	P50Ms  float64       `json:"p50_ms"`
	P90Ms  float64       `json:"p90_ms"`
	P99Ms  float64       `json:"p99_ms"`
}

// SubjectStats summarises the tests of one transport or web target.
type SubjectStats struct {
	Name      string         `json:"name"`
	Label     string         `json:"label"`
	WebTest   bool           `json:"web_test"`
	Total     int64          `json:"total"`
	Successes int64          `json:"successes"`
	Failures  int64          `json:"failures"`
	Outcomes  map[string]int `json:"outcomes"`
	Latency   Latency        `json:"latency"`
}

// Stats represents aggregated metrics for a whole run.
type Stats struct {
	Rounds     int            `json:"rounds"`
	Total      int64          `json:"total"`
	Successes  int64          `json:"successes"`
	Failures   int64          `json:"failures"`
	Outcomes   map[string]int `json:"outcomes"`
	Latency    Latency        `json:"latency"`
	Duration   time.Duration  `json:"-"`
	DurationMs float64        `json:"duration_ms"`
	Subjects   []SubjectStats `json:"subjects"`
	Reasons    map[string]int `json:"failure_reasons,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{
		overall:  newTally("", false),
		subjects: make(map[string]*tally),
		failures: make(map[string]int64),
	}
}

// Record adds one test result.
func (c *Collector) Record(r model.TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := r.Subject.Name()
	t, ok := c.subjects[name]
	if !ok {
		t = newTally(r.Subject.Label(), r.Subject.IsWebTest())
		c.subjects[name] = t
		c.order = append(c.order, name)
	}
	t.record(r)
	c.overall.record(r)

	if !r.Success {
		c.failures[FailureReason(r)]++
	}
}

// RoundDone marks the end of a round.
func (c *Collector) RoundDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds++
}

// Stats computes and returns current aggregated statistics. Subjects are
// listed in the order they were first recorded.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Rounds:     c.rounds,
		Total:      c.overall.successes + c.overall.failures,
		Successes:  c.overall.successes,
		Failures:   c.overall.failures,
		Outcomes:   toIntMap(c.overall.outcomes),
		Latency:    c.overall.latency(),
		Duration:   elapsed,
		DurationMs: float64(elapsed) / float64(time.Millisecond),
	}

	for _, name := range c.order {
		t := c.subjects[name]
		stats.Subjects = append(stats.Subjects, SubjectStats{
			Name:      name,
			Label:     t.label,
			WebTest:   t.webTest,
			Total:     t.successes + t.failures,
			Successes: t.successes,
			Failures:  t.failures,
			Outcomes:  toIntMap(t.outcomes),
			Latency:   t.latency(),
		})
	}

	if len(c.failures) > 0 {
		stats.Reasons = toIntMap(c.failures)
	}
	return stats
}

func (t *tally) latency() Latency {
	l := Latency{Min: t.min, Max: t.max}
	if total := t.successes + t.failures; total > 0 {
		l.Mean = time.Duration(int64(t.sum) / total)
	}
	if t.hist.TotalCount() > 0 {
		l.P50 = time.Duration(t.hist.ValueAtQuantile(50)) * time.Microsecond
		l.P90 = time.Duration(t.hist.ValueAtQuantile(90)) * time.Microsecond
		l.P99 = time.Duration(t.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	l.MinMs = ms(l.Min)
	l.MaxMs = ms(l.Max)
	l.MeanMs = ms(l.Mean)
	l.P50Ms = ms(l.P50)
	l.P90Ms = ms(l.P90)
	l.P99Ms = ms(l.P99)
	return l
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func toIntMap(in map[string]int64) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = int(v)
	}
	return out
}
