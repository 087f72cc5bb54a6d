package gateway

import "sync/atomic"

// CallMetrics are cumulative process-wide counters for connector calls.
// Concurrent turns share one instance, so everything is atomic.
type CallMetrics struct {
	calls            atomic.Int64
	failures         atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalLatencyMs   atomic.Int64
}

// Snapshot is a read-only view of the metrics with derived averages.
type Snapshot struct {
	Calls            int64
	Failures         int64
	PromptTokens     int64
	CompletionTokens int64
	TotalLatencyMs   int64
	AvgLatencyMs     float64
	FailureRate      float64
}

func (m *CallMetrics) recordCall(latencyMs int64, promptTokens, completionTokens int) {
	m.calls.Add(1)
	m.totalLatencyMs.Add(latencyMs)
	m.promptTokens.Add(int64(promptTokens))
	m.completionTokens.Add(int64(completionTokens))
}

func (m *CallMetrics) recordFailure() {
	m.calls.Add(1)
	m.failures.Add(1)
}

// Snapshot returns the current totals with derived average latency and
// failure rate.
func (m *CallMetrics) Snapshot() Snapshot {
	s := Snapshot{
		Calls:            m.calls.Load(),
		Failures:         m.failures.Load(),
		PromptTokens:     m.promptTokens.Load(),
		CompletionTokens: m.completionTokens.Load(),
		TotalLatencyMs:   m.totalLatencyMs.Load(),
	}
	if succeeded := s.Calls - s.Failures; succeeded > 0 {
		s.AvgLatencyMs = float64(s.TotalLatencyMs) / float64(succeeded)
	}
	if s.Calls > 0 {
		s.FailureRate = float64(s.Failures) / float64(s.Calls)
	}
	return s
}
