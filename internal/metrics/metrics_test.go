package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsRecord(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.ObserveExtraction(ResultOK, 20*time.Millisecond)
	m.ObserveExtraction(ResultError, time.Second)
	m.ObserveExtraction(ResultCached, 0)

	if got := counterValue(t, m.extractionsTotal.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("extractions_total(ok) = %v, want 1", got)
	}
	if got := counterValue(t, m.extractionsTotal.WithLabelValues(ResultCached)); got != 1 {
		t.Errorf("extractions_total(cached) = %v, want 1", got)
	}
	if got := histogramCount(t, m.extractionDuration); got != 2 {
		t.Errorf("extraction_duration_seconds count = %d, want 2", got)
	}

	m.ObserveRegeneration(OutcomeChanged)
	m.ObserveRegeneration(OutcomeChanged)
	if got := counterValue(t, m.regenerations.WithLabelValues(OutcomeChanged)); got != 2 {
		t.Errorf("regenerations_total(changed) = %v, want 2", got)
	}

	m.SetPagefiles(7)
	m.SetInvalid(2)
	if got := gaugeValue(t, m.pagefiles); got != 7 {
		t.Errorf("registered = %v, want 7", got)
	}
	if got := gaugeValue(t, m.invalidPagefiles); got != 2 {
		t.Errorf("invalid = %v, want 2", got)
	}

	m.ReloadClientConnected()
	m.ReloadClientConnected()
	m.ReloadClientDisconnected()
	if got := gaugeValue(t, m.reloadClients); got != 1 {
		t.Errorf("reload_clients = %v, want 1", got)
	}

	m.ObserveWatchEvent("add")
	if got := counterValue(t, m.watchEvents.WithLabelValues("add")); got != 1 {
		t.Errorf("watch_events_total(add) = %v, want 1", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("custom"), WithSubsystem("dev"))
	m.ObserveRegeneration(OutcomeSkipped)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "custom_dev_regenerations_total" {
			found = true
		}
	}
	if !found {
		t.Error("custom_dev_regenerations_total not registered")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveExtraction(ResultOK, time.Second)
	m.ObserveRegeneration(OutcomeFailed)
	m.SetPagefiles(1)
	m.SetInvalid(1)
	m.ObserveWatchEvent("remove")
	m.ReloadClientConnected()
	m.ReloadClientDisconnected()
}
