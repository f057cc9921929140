package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	guardkit "github.com/guardkit/guardkit"
)

type fakeSource struct {
	snapshot guardkit.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() guardkit.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: guardkit.MetricsSnapshot{
			Counters:   map[guardkit.MetricID]uint64{},
			Histograms: map[guardkit.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: guardkit.MetricsSnapshot{
			Counters: map[guardkit.MetricID]uint64{
				guardkit.MetricCSRFPassed:  7,
				guardkit.MetricRateLimited: 3,
			},
			Histograms: map[guardkit.MetricID][]uint64{
				guardkit.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "guardkit_csrf_passed_total 7") {
		t.Fatalf("expected csrf_passed counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "guardkit_rate_limited_total 3") {
		t.Fatalf("expected rate_limited counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "guardkit_verify_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "guardkit_verify_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "guardkit_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: guardkit.MetricsSnapshot{
			Counters:   map[guardkit.MetricID]uint64{guardkit.MetricCSRFPassed: 1},
			Histograms: map[guardkit.MetricID][]uint64{},
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

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: guardkit.MetricsSnapshot{
			Counters: map[guardkit.MetricID]uint64{
				guardkit.MetricCSRFPassed:      1000,
				guardkit.MetricCSRFMismatch:    40,
				guardkit.MetricRateAllowed:     800,
				guardkit.MetricRateLimited:     10,
				guardkit.MetricChallengeIssued: 300,
				guardkit.MetricCaptchaVerified: 280,
				guardkit.MetricCaptchaRejected: 20,
				guardkit.MetricCaptchaFallback: 3,
			},
			Histograms: map[guardkit.MetricID][]uint64{
				guardkit.MetricVerifyLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
