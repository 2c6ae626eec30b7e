package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are registered on a caller-supplied registry so tests can use a
// fresh one.
type Metrics struct {
	Started   *prometheus.CounterVec
	Finished  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Processed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdedup_jobs_started_total",
				Help: "Total number of matching jobs started",
			},
			[]string{"mode"},
		),
		Finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdedup_jobs_finished_total",
				Help: "Total number of matching jobs finished, by outcome",
			},
			[]string{"mode", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopdedup_job_duration_seconds",
				Help:    "Duration of matching jobs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"mode"},
		),
		Processed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopdedup_records_processed_total",
				Help: "Total number of shop records read by matching jobs",
			},
			[]string{"mode"},
		),
	}
	reg.MustRegister(m.Started, m.Finished, m.Duration, m.Processed)
	return m
}
