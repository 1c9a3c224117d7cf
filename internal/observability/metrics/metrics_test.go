package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func TestQueueMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.ObserveJoin("clinic-1", 0.02)
	m.ObserveJoin("clinic-1", 0.05)
	m.ObserveJoinRejected("clinic-1", "already_in_queue")
	m.ObserveLeave()
	m.ObserveNotification("queue_update")
	m.ObserveSubscriptionError()

	families := gather(t, reg)

	joins := families["clinicconnect_queue_joins_total"]
	if joins == nil {
		t.Fatal("joins_total not registered")
	}
	if got := joins.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("joins_total = %v, want 2", got)
	}

	rejected := families["clinicconnect_queue_joins_rejected_total"]
	labels := rejected.GetMetric()[0].GetLabel()
	var hasReason bool
	for _, l := range labels {
		if l.GetName() == "reason" && l.GetValue() == "already_in_queue" {
			hasReason = true
		}
	}
	if !hasReason {
		t.Errorf("rejection labels = %v", labels)
	}

	if got := families["clinicconnect_notify_emitted_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("emitted_total = %v, want 1", got)
	}
	if got := families["clinicconnect_sync_subscription_errors_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("subscription_errors_total = %v, want 1", got)
	}

	latency := families["clinicconnect_queue_join_latency_seconds"]
	if got := latency.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("latency samples = %d, want 2", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *QueueMetrics
	m.ObserveJoin("clinic-1", 0.1)
	m.ObserveJoinRejected("clinic-1", "unavailable")
	m.ObserveLeave()
	m.ObserveNotification("system")
	m.ObserveSubscriptionError()
}

func TestMetricNamesCarryNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)
	m.ObserveJoin("clinic-1", 0.01)

	for name := range gather(t, reg) {
		if !strings.HasPrefix(name, "clinicconnect_") {
			t.Errorf("metric %q outside namespace", name)
		}
	}
}
