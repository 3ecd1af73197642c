// Package metrics exposes Prometheus instrumentation for the resolution
// engine and the batch pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResolveAttempts *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	BatchJobs       *prometheus.CounterVec
	BatchAdsCopied  prometheus.Counter
	QueueJobs       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ResolveAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "adscope_resolve_attempts_total",
			Help: "Media resolution attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		ResolveDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adscope_resolve_duration_seconds",
			Help:    "Duration of a single strategy attempt.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"strategy"}),
		BatchJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "adscope_batch_jobs_total",
			Help: "Batch scrape jobs by terminal status.",
		}, []string{"status"}),
		BatchAdsCopied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adscope_batch_ads_durable_total",
			Help: "Ads whose media was copied to durable storage.",
		}),
		QueueJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "adscope_queue_jobs_total",
			Help: "Background queue jobs by type and outcome.",
		}, []string{"type", "outcome"}),
	}
}
