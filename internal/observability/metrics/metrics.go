package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the request intake and
// dashboard stats flows.
type IntakeMetrics struct {
	submissionsTotal *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	snapshotLatency  prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saleshub",
			Subsystem: "requests",
			Name:      "submissions_total",
			Help:      "Total public service-request submissions",
		}, []string{"category", "tier"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saleshub",
			Subsystem: "requests",
			Name:      "transitions_total",
			Help:      "Total lifecycle transitions attempted",
		}, []string{"target", "outcome"}),
		snapshotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "saleshub",
			Subsystem: "stats",
			Name:      "snapshot_latency_seconds",
			Help:      "Latency of dashboard snapshot computation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.transitionsTotal, m.snapshotLatency)
	return m
}

func (m *IntakeMetrics) ObserveSubmission(category, tier string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(category, tier).Inc()
}

func (m *IntakeMetrics) ObserveTransition(target, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(target, outcome).Inc()
}

func (m *IntakeMetrics) ObserveSnapshotLatency(seconds float64) {
	if m == nil {
		return
	}
	m.snapshotLatency.Observe(seconds)
}
