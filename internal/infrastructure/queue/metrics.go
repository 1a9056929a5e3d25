package queue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes recorded by the worker
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeDead    = "dead"
)

// Metrics are the Prometheus collectors for job processing
type Metrics struct {
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inflight  prometheus.Gauge
}

// NewMetrics registers the queue collectors on reg. A nil reg skips
// registration, which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Jobs processed by type and outcome.",
		}, []string{"type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mall",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Handler run time per job type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mall",
			Subsystem: "queue",
			Name:      "jobs_inflight",
			Help:      "Jobs currently being handled.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.duration, m.inflight)
	}
	return m
}

func (m *Metrics) observe(jobType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(jobType, outcome).Inc()
	m.duration.WithLabelValues(jobType).Observe(seconds)
}

func (m *Metrics) track(delta float64) {
	if m == nil {
		return
	}
	m.inflight.Add(delta)
}
