package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)

	metrics.IncCreated()
	metrics.IncCreated()
	metrics.IncTransition("confirmed")
	metrics.IncEscrow("released")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := plainCounterValue(t, mfs, "orders_created_total"); got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got, err := labeledCounterValue(mfs, "order_status_transitions_total", "status", "confirmed"); err != nil {
		t.Fatalf("fetch transition: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transition=1, got %f", got)
	}
	if got, err := labeledCounterValue(mfs, "escrow_resolutions_total", "outcome", "released"); err != nil {
		t.Fatalf("fetch escrow: %v", err)
	} else if got != 1 {
		t.Fatalf("expected escrow=1, got %f", got)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var metrics *OrderMetrics
	metrics.IncCreated()
	metrics.IncTransition("confirmed")
	metrics.IncEscrow("refunded")

	unregistered := NewOrderMetrics(nil)
	unregistered.IncCreated()
	unregistered.IncTransition("cancelled")
	unregistered.IncEscrow("held")
}

func TestOrderMetricsFallsBackToUnknownLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)
	metrics.IncTransition("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := labeledCounterValue(mfs, "order_status_transitions_total", "status", "unknown"); err != nil {
		t.Fatalf("fetch transition: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown transition=1, got %f", got)
	}
}

func plainCounterValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := metricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	metric := mf.GetMetric()
	if len(metric) != 1 {
		t.Fatalf("expected single series for %q, got %d", name, len(metric))
	}
	return metric[0].GetCounter().GetValue()
}

func labeledCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := metricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func metricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
