// Package metrics records latency distributions of pipeline steps.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1µs and 10 minutes with
// three significant figures.
const (
	minMicros = 1
	maxMicros = int64(10 * time.Minute / time.Microsecond)
	sigFigs   = 3
)

// StepLatency summarises the recorded runs of one step.
type StepLatency struct {
	Step   string  `json:"step"`
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

type stepStats struct {
	histogram *hdrhistogram.Histogram
	errors    int64
}

// Recorder keeps one histogram per step. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{steps: make(map[string]*stepStats)}
}

// ObserveStep records one execution of step.
func (r *Recorder) ObserveStep(step string, elapsed time.Duration, err error) {
	micros := elapsed.Microseconds()
	if micros < minMicros {
		micros = minMicros
	}
	if micros > maxMicros {
		micros = maxMicros
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.steps[step]
	if !ok {
		s = &stepStats{histogram: hdrhistogram.New(minMicros, maxMicros, sigFigs)}
		r.steps[step] = s
	}
	if err != nil {
		s.errors++
	}
	// The value is clamped into range, so RecordValue cannot fail.
	_ = s.histogram.RecordValue(micros)
}

// Snapshot returns the current statistics sorted by step name.
func (r *Recorder) Snapshot() []StepLatency {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StepLatency, 0, len(r.steps))
	for name, s := range r.steps {
		h := s.histogram
		out = append(out, StepLatency{
			Step:   name,
			Count:  h.TotalCount(),
			Errors: s.errors,
			MeanMs: h.Mean() / 1000,
			P50Ms:  microsToMs(h.ValueAtQuantile(50)),
			P95Ms:  microsToMs(h.ValueAtQuantile(95)),
			P99Ms:  microsToMs(h.ValueAtQuantile(99)),
			MaxMs:  microsToMs(h.Max()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}

// Reset drops every recorded value.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = make(map[string]*stepStats)
}

func microsToMs(v int64) float64 {
	return float64(v) / 1000
}
