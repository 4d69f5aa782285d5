// Package metrics exposes the ingestion pipeline's Prometheus surface:
// counters for the error taxonomy and record/batch throughput.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms scraped by /metrics.
type Metrics struct {
	ErrorsTotal        *prometheus.CounterVec
	RecordsDroppedTotal *prometheus.CounterVec
	BatchesTotal       *prometheus.CounterVec
	RecordsStoredTotal *prometheus.CounterVec
	BatchDuration      *prometheus.HistogramVec
}

// New registers and returns the ingestion metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otlpcore_errors_total",
			Help: "Ingestion errors by taxonomy kind and signal.",
		}, []string{"kind", "signal"}),
		RecordsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otlpcore_records_dropped_total",
			Help: "Records dropped during ingestion by signal and reason.",
		}, []string{"signal", "reason"}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otlpcore_batches_total",
			Help: "Ingested batches by signal and outcome.",
		}, []string{"signal", "outcome"}),
		RecordsStoredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otlpcore_records_stored_total",
			Help: "Records committed to storage by signal.",
		}, []string{"signal"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "otlpcore_batch_duration_seconds",
			Help:    "Wall-clock time to process one ingest batch, by signal.",
			Buckets: prometheus.DefBuckets,
		}, []string{"signal"}),
	}

	reg.MustRegister(m.ErrorsTotal, m.RecordsDroppedTotal, m.BatchesTotal, m.RecordsStoredTotal, m.BatchDuration)
	return m
}
