package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var jobDurationBuckets = []float64{0.5, 1, 5, 15, 30, 60, 300, 600, 1800}

// JobMetrics records sync job lifecycle events
type JobMetrics struct {
	scheduled   *prometheus.CounterVec
	claimed     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	reaped      *prometheus.CounterVec
	running     prometheus.Gauge
}

// NewJobMetrics creates and registers the sync job metric set
func NewJobMetrics(r *Registry) *JobMetrics {
	m := &JobMetrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "scheduled_total",
			Help:      "Sync jobs scheduled by type.",
		}, []string{"job_type"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "claimed_total",
			Help:      "Sync jobs claimed for execution by type.",
		}, []string{"job_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "Sync job state changes after execution by type and resulting status.",
		}, []string{"job_type", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Sync job run duration by type.",
			Buckets:   jobDurationBuckets,
		}, []string{"job_type"}),
		reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "reaped_total",
			Help:      "Stale running jobs recovered by the reaper by resulting status.",
		}, []string{"status"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: r.namespace,
			Subsystem: "jobs",
			Name:      "running",
			Help:      "Sync jobs currently executing in this process.",
		}),
	}
	r.mustRegister(m.scheduled, m.claimed, m.transitions, m.duration, m.reaped, m.running)
	return m
}

// RecordScheduled counts a newly scheduled job
func (m *JobMetrics) RecordScheduled(jobType string) {
	m.scheduled.WithLabelValues(jobType).Inc()
}

// RecordClaimed counts a claimed job
func (m *JobMetrics) RecordClaimed(jobType string) {
	m.claimed.WithLabelValues(jobType).Inc()
}

// RecordTransition counts a job leaving RUNNING. A non-zero run duration is observed.
func (m *JobMetrics) RecordTransition(jobType, status string, d time.Duration) {
	m.transitions.WithLabelValues(jobType, status).Inc()
	if d > 0 {
		m.duration.WithLabelValues(jobType).Observe(d.Seconds())
	}
}

// RecordReaped counts a stale job recovered by the reaper
func (m *JobMetrics) RecordReaped(status string) {
	m.reaped.WithLabelValues(status).Inc()
}

// IncRunning marks one more job executing
func (m *JobMetrics) IncRunning() { m.running.Inc() }

// DecRunning marks one job finished executing
func (m *JobMetrics) DecRunning() { m.running.Dec() }
