// Package metrics defines the Prometheus collectors for a knowledge-base run
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
)

// Answer outcomes.
const (
	AnswerBackend  = "backend"
	AnswerFallback = "fallback"
)

// Metrics holds all collectors on a private registry, so several runs in
// one process never collide.
type Metrics struct {
	Registry *prometheus.Registry

	DocumentsTotal  *prometheus.CounterVec
	AnswersTotal    *prometheus.CounterVec
	BackendLatency  prometheus.Histogram
	RecordsTotal    prometheus.Counter
	RecordsImported prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitekb_documents_total",
				Help: "Documents seen, by origin and outcome (processed, skipped).",
			},
			[]string{"origin", "outcome"},
		),
		AnswersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitekb_answers_total",
				Help: "Answers produced, by outcome (backend, fallback).",
			},
			[]string{"outcome"},
		),
		BackendLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitekb_backend_latency_seconds",
				Help:    "Generative backend call latency in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		RecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitekb_records_total",
				Help: "Records generated for the knowledge-base table.",
			},
		),
		RecordsImported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitekb_records_imported_total",
				Help: "Records imported into the knowledge store.",
			},
		),
	}

	m.Registry.MustRegister(
		m.DocumentsTotal,
		m.AnswersTotal,
		m.BackendLatency,
		m.RecordsTotal,
		m.RecordsImported,
	)

	return m
}

func (m *Metrics) ObserveDocument(origin, outcome string) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(origin, outcome).Inc()
}

func (m *Metrics) ObserveAnswer(fallback bool, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := AnswerBackend
	if fallback {
		outcome = AnswerFallback
	}
	m.AnswersTotal.WithLabelValues(outcome).Inc()
	m.BackendLatency.Observe(latency.Seconds())
}

func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) AddImported(n int) {
	if m == nil {
		return
	}
	m.RecordsImported.Add(float64(n))
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
