package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	turnsTotal           *prometheus.CounterVec
	llmDurationSeconds   prometheus.Histogram
	queryDurationSeconds prometheus.Histogram
	queryFailuresTotal   *prometheus.CounterVec
	reconnectsTotal      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatwithdb_turns_total",
				Help: "Total number of questions answered, by outcome.",
			},
			[]string{"outcome"},
		),
		llmDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatwithdb_llm_request_duration_seconds",
				Help:    "Latency of LLM completion requests.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		queryDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatwithdb_query_duration_seconds",
				Help:    "Latency of generated SQL statements.",
				Buckets: prometheus.DefBuckets,
			},
		),
		queryFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatwithdb_query_failures_total",
				Help: "Total number of failed statements, by error kind.",
			},
			[]string{"kind"},
		),
		reconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatwithdb_reconnects_total",
				Help: "Total number of automatic reconnects after a lost or timed out connection.",
			},
		),
	}
	reg.MustRegister(m.turnsTotal, m.llmDurationSeconds, m.queryDurationSeconds, m.queryFailuresTotal, m.reconnectsTotal)
	return m
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLMRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.llmDurationSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.queryDurationSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveQueryFailure(kind string) {
	if m == nil {
		return
	}
	m.queryFailuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}
