package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraping pipeline.
type Metrics struct {
	Registry             *prometheus.Registry
	RunsTotal            *prometheus.CounterVec
	FetchesTotal         *prometheus.CounterVec
	FetchDuration        prometheus.Histogram
	PricesExtractedTotal prometheus.Counter
	FallbacksTotal       prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popscan_runs_total",
			Help: "Total pipeline runs by data source (live or synthetic).",
		},
		[]string{"source"},
	)
	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "popscan_fetches_total",
			Help: "Per-variant fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "popscan_fetch_duration_seconds",
			Help:    "Fetch-collaborator request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pricesExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "popscan_prices_extracted_total",
			Help: "Total price observations extracted from live pages.",
		},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "popscan_fallbacks_total",
			Help: "Runs that degraded to the synthetic fallback.",
		},
	)

	registry.MustRegister(runs, fetches, fetchDuration, pricesExtracted, fallbacks)

	return &Metrics{
		Registry:             registry,
		RunsTotal:            runs,
		FetchesTotal:         fetches,
		FetchDuration:        fetchDuration,
		PricesExtractedTotal: pricesExtracted,
		FallbacksTotal:       fallbacks,
	}
}

// IncRun increments the runs counter for a source label.
func (m *Metrics) IncRun(source string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(source).Inc()
}

// IncFetch increments the fetches counter for an outcome label.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchDuration records one fetch latency.
func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddPricesExtracted adds to the extracted-prices counter.
func (m *Metrics) AddPricesExtracted(n int) {
	if m == nil {
		return
	}
	m.PricesExtractedTotal.Add(float64(n))
}

// IncFallback increments the synthetic-fallback counter.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}
