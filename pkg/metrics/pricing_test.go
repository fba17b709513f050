package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPricingMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPricingMetrics(reg)

	metrics.ObserveQuote("ok", 120*time.Millisecond)
	metrics.ObserveQuote("rate_limited", 40*time.Millisecond)
	metrics.IncRetry()
	metrics.IncStaleDropped()
	metrics.IncDebounced()
	metrics.IncDebounced()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pricing_quote_attempts", "outcome", "ok"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected attempts=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "pricing_quote_duration_seconds", "outcome", "ok"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got := fetchPlainCounter(t, mfs, "pricing_quote_retries"); got != 1 {
		t.Fatalf("expected retries=1, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "pricing_stale_responses_dropped"); got != 1 {
		t.Fatalf("expected stale=1, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "pricing_requests_debounced"); got != 2 {
		t.Fatalf("expected debounced=2, got %f", got)
	}
}

func TestCheckoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)

	metrics.IncValidation("warnings")
	metrics.IncOutcome("handoff")
	metrics.IncOutcome("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_validations", "result", "warnings"); err != nil {
		t.Fatalf("fetch validations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected validations=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_outcomes", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch unknown outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown outcome=1, got %f", got)
	}
}

func fetchPlainCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	metrics := mf.GetMetric()
	if len(metrics) != 1 {
		t.Fatalf("expected one series for %q, got %d", name, len(metrics))
	}
	return metrics[0].GetCounter().GetValue()
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
