// Package metrics exports pipeline and connector metrics in Prometheus
// format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhalter/coachflow/ai/gateway"
)

// Exporter bridges the gateway's atomic call counters and the circuit
// breaker state into a Prometheus registry, alongside pipeline-level
// counters recorded directly.
type Exporter struct {
	registry *prometheus.Registry

	// Turn metrics, recorded by callers.
	turns       *prometheus.CounterVec
	denials     prometheus.Counter
	drafts      *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for turn latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates an exporter and registers the gateway bridge. The
// gateway's own counters stay authoritative; the bridge reads them at
// scrape time so the two never drift.
func NewExporter(cfg Config, gw *gateway.Gateway) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachflow",
			Subsystem: "pipeline",
			Name:      "turns_total",
			Help:      "Total processed turns",
		},
		[]string{"mode", "status"},
	)
	e.denials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coachflow",
			Subsystem: "pipeline",
			Name:      "denials_total",
			Help:      "Turns denied by session rules",
		},
	)
	e.drafts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachflow",
			Subsystem: "pipeline",
			Name:      "drafts_total",
			Help:      "Drafts extracted from model output",
		},
		[]string{"type"},
	)
	e.turnLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coachflow",
			Subsystem: "pipeline",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end turn latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"mode"},
	)

	registry.MustRegister(e.turns, e.denials, e.drafts, e.turnLatency)
	registerGatewayBridge(registry, gw)
	return e
}

func registerGatewayBridge(registry *prometheus.Registry, gw *gateway.Gateway) {
	counter := func(name, help string, value func(gateway.Snapshot) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "coachflow", Subsystem: "llm", Name: name, Help: help,
		}, func() float64 { return value(gw.Metrics()) })
	}
	gauge := func(name, help string, value func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "coachflow", Subsystem: "llm", Name: name, Help: help,
		}, value)
	}

	registry.MustRegister(
		counter("calls_total", "Total connector call sequences", func(s gateway.Snapshot) float64 {
			return float64(s.Calls)
		}),
		counter("failures_total", "Connector call sequences that exhausted retries", func(s gateway.Snapshot) float64 {
			return float64(s.Failures)
		}),
		counter("prompt_tokens_total", "Prompt tokens consumed", func(s gateway.Snapshot) float64 {
			return float64(s.PromptTokens)
		}),
		counter("completion_tokens_total", "Completion tokens consumed", func(s gateway.Snapshot) float64 {
			return float64(s.CompletionTokens)
		}),
		gauge("avg_latency_ms", "Average latency of succeeded calls in milliseconds", func() float64 {
			return gw.Metrics().AvgLatencyMs
		}),
		gauge("failure_rate", "Failed fraction of all call sequences (0-1)", func() float64 {
			return gw.Metrics().FailureRate
		}),
		gauge("breaker_open", "1 while the circuit breaker is rejecting calls", func() float64 {
			if gw.Breaker().Open() {
				return 1
			}
			return 0
		}),
		gauge("breaker_consecutive_failures", "Current consecutive-failure count", func() float64 {
			return float64(gw.Breaker().ConsecutiveFailures())
		}),
	)
}

// RecordTurn records one completed turn.
func (e *Exporter) RecordTurn(mode string, latencySeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.turns.WithLabelValues(mode, status).Inc()
	if success {
		e.turnLatency.WithLabelValues(mode).Observe(latencySeconds)
	}
}

// RecordDenial records a turn rejected by a session rule.
func (e *Exporter) RecordDenial(mode string) {
	e.turns.WithLabelValues(mode, "denied").Inc()
	e.denials.Inc()
}

// RecordDraft records one extracted draft by type.
func (e *Exporter) RecordDraft(draftType string) {
	e.drafts.WithLabelValues(draftType).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
