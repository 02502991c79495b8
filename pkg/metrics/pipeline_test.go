package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.ObserveBatch("memory", 120*time.Millisecond)
	metrics.IncMessage("success")
	metrics.IncMessage("failed")
	metrics.IncMessage("failed")
	metrics.IncAlert("large_order")
	metrics.IncTruncation()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ingest_messages_total", "status", "failed"); err != nil {
		t.Fatalf("fetch failed counter: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failed=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ingest_alerts_published_total", "kind", "large_order"); err != nil {
		t.Fatalf("fetch alert counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected alerts=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "ingest_batch_duration_seconds", "source", "memory"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestPipelineMetricsNilRegistererIsInert(t *testing.T) {
	metrics := NewPipelineMetrics(nil)
	metrics.ObserveBatch("memory", time.Second)
	metrics.IncMessage("success")
	metrics.IncAlert("invalid_data")
	metrics.IncTruncation()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
