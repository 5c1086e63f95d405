// Package metrics exposes signaling counters in the prometheus exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stream"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	reg *prometheus.Registry

	offers      *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	commands    *prometheus.CounterVec
	sessions    prometheus.Gauge
	negotiation prometheus.Histogram
	plis        prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}
	m.offers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signal",
		Name:      "offers_total",
	}, []string{"result"})
	m.candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signal",
		Name:      "candidates_total",
	}, []string{"result"})
	m.evictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "evictions_total",
	}, []string{"reason"})
	m.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "commands_total",
	}, []string{"command"})
	m.sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "total",
	})
	m.negotiation = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "signal",
		Name:      "answer_duration_ms",
		Buckets:   []float64{10, 50, 100, 250, 500, 750, 1000, 2500},
	})
	m.plis = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rtc",
		Name:      "pli_total",
	})

	m.reg.MustRegister(
		m.offers, m.candidates, m.evictions, m.commands, m.sessions, m.negotiation, m.plis,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Offer(result string) {
	if m == nil {
		return
	}
	m.offers.WithLabelValues(result).Inc()
}

func (m *Metrics) Candidate(result string) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(result).Inc()
}

func (m *Metrics) Evicted(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) Sessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) Negotiated(d time.Duration) {
	if m == nil {
		return
	}
	m.negotiation.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) PLI() {
	if m == nil {
		return
	}
	m.plis.Inc()
}
