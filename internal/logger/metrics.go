package logger

import (
	"sync"
	"time"
)

// timing aggregates every duration recorded under one name
type timing struct {
	count    int64
	total    time.Duration
	min, max time.Duration
	last     time.Duration
}

func (t *timing) add(d time.Duration) {
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.count++
	t.total += d
	t.last = d
}

// TimingSummary is the exported view of one timing
type TimingSummary struct {
	Count   int64  `json:"count"`
	Total   string `json:"total"`
	Average string `json:"average"`
	Min     string `json:"min"`
	Max     string `json:"max"`
	Last    string `json:"last"`
}

// MetricsSnapshot is a point-in-time copy of all metrics
type MetricsSnapshot struct {
	Counters map[string]int64         `json:"counters"`
	Gauges   map[string]float64       `json:"gauges"`
	Timings  map[string]TimingSummary `json:"timings"`
}

// Metrics holds process counters, gauges and timing aggregates. Memory use depends
// on the number of metric names only, not on how often they are recorded.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string]*timing
}

var defaultMetrics = NewMetrics()

// NewMetrics creates an empty Metrics
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string]*timing),
	}
}

// IncrCounter increments a counter by 1
func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// SetGauge sets a gauge, replacing the previous value
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// RecordTiming folds a duration into the named timing
func (m *Metrics) RecordTiming(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timings[name]
	if !ok {
		t = &timing{}
		m.timings[name] = t
	}
	t.add(duration)
}

// GetSnapshot copies the current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
		Timings:  make(map[string]TimingSummary, len(m.timings)),
	}
	for k, v := range m.counters {
		snap.Counters[k] = v
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}
	for name, t := range m.timings {
		snap.Timings[name] = TimingSummary{
			Count:   t.count,
			Total:   t.total.String(),
			Average: (t.total / time.Duration(t.count)).String(),
			Min:     t.min.String(),
			Max:     t.max.String(),
			Last:    t.last.String(),
		}
	}
	return snap
}

// IncrCounter increments a counter on the default metrics
func IncrCounter(name string) {
	defaultMetrics.IncrCounter(name)
}

// SetGauge sets a gauge on the default metrics
func SetGauge(name string, value float64) {
	defaultMetrics.SetGauge(name, value)
}

// RecordTiming records a timing on the default metrics
func RecordTiming(name string, duration time.Duration) {
	defaultMetrics.RecordTiming(name, duration)
}

// GetMetricsSnapshot copies the default metrics
func GetMetricsSnapshot() MetricsSnapshot {
	return defaultMetrics.GetSnapshot()
}
