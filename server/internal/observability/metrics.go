package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Operation names recorded by the service.
const (
	OpChat       = "chat"
	OpCritique   = "critique"
	OpTranscribe = "transcribe"
	OpSynthesize = "synthesize"
	OpNewsFetch  = "news_fetch"
)

// Metrics collects in-process counters and latencies per operation.
type Metrics struct {
	mu        sync.Mutex
	startedAt time.Time

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operations map[string]*OperationMetrics
	events     map[string]*atomic.Int64
}

// OperationMetrics represents metrics for a single operation.
type OperationMetrics struct {
	count         atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	maxDuration   atomic.Int64 // milliseconds
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:  time.Now(),
		operations: make(map[string]*OperationMetrics),
		events:     make(map[string]*atomic.Int64),
	}
}

// Observe records one completed operation.
func (m *Metrics) Observe(op string, duration time.Duration, err error) {
	om := m.operation(op)
	m.requestTotal.Add(1)
	om.count.Add(1)
	if err != nil {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
	ms := duration.Milliseconds()
	om.totalDuration.Add(ms)
	for {
		current := om.maxDuration.Load()
		if ms <= current || om.maxDuration.CompareAndSwap(current, ms) {
			break
		}
	}
}

// Inc increments a named event counter, e.g. "critique_dropped".
func (m *Metrics) Inc(event string) {
	m.mu.Lock()
	counter, ok := m.events[event]
	if !ok {
		counter = &atomic.Int64{}
		m.events[event] = counter
	}
	m.mu.Unlock()
	counter.Add(1)
}

func (m *Metrics) operation(op string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[op]
	if !ok {
		om = &OperationMetrics{}
		m.operations[op] = om
	}
	return om
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := &MetricsSnapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Operations:    make(map[string]*OperationSnapshot, len(m.operations)),
		Events:        make(map[string]int64, len(m.events)),
	}
	for op, om := range m.operations {
		count := om.count.Load()
		s := &OperationSnapshot{
			Count:         count,
			ErrorCount:    om.errorCount.Load(),
			MaxDurationMs: om.maxDuration.Load(),
		}
		if count > 0 {
			s.AvgDurationMs = om.totalDuration.Load() / count
		}
		snapshot.Operations[op] = s
	}
	for event, counter := range m.events {
		snapshot.Events[event] = counter.Load()
	}
	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	UptimeSeconds int64                         `json:"uptime_seconds"`
	RequestTotal  int64                         `json:"request_total"`
	RequestFailed int64                         `json:"request_failed"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
	Events        map[string]int64              `json:"events"`
}

// OperationSnapshot represents metrics for one operation.
type OperationSnapshot struct {
	Count         int64 `json:"count"`
	ErrorCount    int64 `json:"error_count"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
	MaxDurationMs int64 `json:"max_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}

// OperationNames returns the recorded operations in sorted order.
func (s *MetricsSnapshot) OperationNames() []string {
	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
