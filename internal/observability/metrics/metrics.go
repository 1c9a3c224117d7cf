package metrics

import "github.com/prometheus/client_golang/prometheus"

// QueueMetrics exposes counters/histograms for queue coordination flows.
type QueueMetrics struct {
	joinsTotal         *prometheus.CounterVec
	joinsRejectedTotal *prometheus.CounterVec
	leavesTotal        prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	subscriptionErrors prometheus.Counter
	joinLatency        prometheus.Histogram
}

func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	m := &QueueMetrics{
		joinsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicconnect",
			Subsystem: "queue",
			Name:      "joins_total",
			Help:      "Total successful queue joins",
		}, []string{"clinic"}),
		joinsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicconnect",
			Subsystem: "queue",
			Name:      "joins_rejected_total",
			Help:      "Total rejected queue joins",
		}, []string{"clinic", "reason"}),
		leavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicconnect",
			Subsystem: "queue",
			Name:      "leaves_total",
			Help:      "Total queue departures",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicconnect",
			Subsystem: "notify",
			Name:      "emitted_total",
			Help:      "Total notifications emitted by the dedup engine",
		}, []string{"type"}),
		subscriptionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicconnect",
			Subsystem: "sync",
			Name:      "subscription_errors_total",
			Help:      "Total subscription connection faults",
		}),
		joinLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicconnect",
			Subsystem: "queue",
			Name:      "join_latency_seconds",
			Help:      "Latency of the join operation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.joinsTotal, m.joinsRejectedTotal, m.leavesTotal, m.notificationsTotal, m.subscriptionErrors, m.joinLatency)
	return m
}

func (m *QueueMetrics) ObserveJoin(clinic string, seconds float64) {
	if m == nil {
		return
	}
	m.joinsTotal.WithLabelValues(clinic).Inc()
	m.joinLatency.Observe(seconds)
}

func (m *QueueMetrics) ObserveJoinRejected(clinic, reason string) {
	if m == nil {
		return
	}
	m.joinsRejectedTotal.WithLabelValues(clinic, reason).Inc()
}

func (m *QueueMetrics) ObserveLeave() {
	if m == nil {
		return
	}
	m.leavesTotal.Inc()
}

func (m *QueueMetrics) ObserveNotification(eventType string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(eventType).Inc()
}

func (m *QueueMetrics) ObserveSubscriptionError() {
	if m == nil {
		return
	}
	m.subscriptionErrors.Inc()
}
