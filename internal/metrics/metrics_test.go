package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMessagesHandledIncrementsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessagesHandled.WithLabelValues("ack").Inc()
	m.MessagesHandled.WithLabelValues("ack").Inc()
	m.MessagesHandled.WithLabelValues("nack").Inc()

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() != "channelctl_worker_messages_handled_total" {
			continue
		}
		found = true
		for _, metric := range mf.GetMetric() {
			if labelValue(metric) == "ack" && metric.GetCounter().GetValue() != 2 {
				t.Errorf("ack counter = %v, want 2", metric.GetCounter().GetValue())
			}
		}
	}
	if !found {
		t.Fatal("expected channelctl_worker_messages_handled_total to be registered")
	}
}

func labelValue(metric *dto.Metric) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == "action" {
			return label.GetValue()
		}
	}
	return ""
}
