package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	JobsProcessed  *prometheus.CounterVec
	JobRetries     *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
	CycleJobs      prometheus.Gauge
}

// NewMetrics registers the engine collectors on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_jobs_processed_total",
				Help: "Posting jobs that reached a terminal state",
			},
			[]string{"platform", "outcome"},
		),
		JobRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_job_retries_total",
				Help: "Failed publish attempts rescheduled for retry",
			},
			[]string{"platform"},
		),
		PublishLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publisher_publish_duration_seconds",
				Help:    "Duration of publish dispatches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"platform"},
		),
		CycleJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "publisher_cycle_due_jobs",
				Help: "Due jobs found by the last poll",
			},
		),
	}
}
