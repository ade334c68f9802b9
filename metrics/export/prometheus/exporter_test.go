package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/safeher"
)

type fakeSource struct {
	snapshot safeher.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() safeher.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: safeher.MetricsSnapshot{
			Counters:   map[safeher.MetricID]uint64{},
			Histograms: map[safeher.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: safeher.MetricsSnapshot{
			Counters: map[safeher.MetricID]uint64{
				safeher.MetricReportCreated: 7,
			},
			Histograms: map[safeher.MetricID][]uint64{
				safeher.MetricHTTPLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"safeher_report_created_total 7",
		"safeher_login_success_total 0",
		"safeher_http_request_duration_seconds_bucket{le=\"0.005\"} 1",
		"safeher_http_request_duration_seconds_bucket{le=\"+Inf\"} 36",
		"safeher_http_request_duration_seconds_count 36",
		"safeher_validate_latency_seconds_count 0",
		"safeher_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: safeher.MetricsSnapshot{
			Counters:   map[safeher.MetricID]uint64{safeher.MetricLoginSuccess: 1},
			Histograms: map[safeher.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNilExporterRendersNothing(t *testing.T) {
	var exp *Exporter
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: safeher.MetricsSnapshot{
			Counters: map[safeher.MetricID]uint64{
				safeher.MetricLoginSuccess:   1000,
				safeher.MetricLoginFailure:   40,
				safeher.MetricReportCreated:  300,
				safeher.MetricNoteAdded:      90,
				safeher.MetricHTTPRequests:   5000,
				safeher.MetricUploadAccepted: 120,
			},
			Histograms: map[safeher.MetricID][]uint64{
				safeher.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
				safeher.MetricHTTPLatency:     {80, 70, 60, 50, 40, 30, 20, 10},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
