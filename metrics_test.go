package safeher

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricReportCreated)
	m.Inc(MetricReportCreated)
	m.Inc(MetricReportCreated)

	if got := m.Value(MetricReportCreated); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricHTTPRequests)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricHTTPRequests); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricHTTPLatency, d)
	}
	// Counters are not histograms.
	m.Observe(MetricReportCreated, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricHTTPLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricReportCreated]; ok {
		t.Fatal("expected no histogram for a counter metric")
	}
}

func TestObserveHTTPCountsServerErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.engine.ObserveHTTP(200, 3*time.Millisecond)
	env.engine.ObserveHTTP(404, time.Millisecond)
	env.engine.ObserveHTTP(503, time.Millisecond)

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricHTTPRequests] != 3 || snap.Counters[MetricHTTPServerErrors] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
	if snap.Histograms[MetricHTTPLatency][0] != 3 {
		t.Fatalf("expected three fast requests, got %v", snap.Histograms[MetricHTTPLatency])
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricHTTPRequests)
		}
	})
}
