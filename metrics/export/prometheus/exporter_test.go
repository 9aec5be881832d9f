package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goWallet "github.com/MrEthical07/goWallet"
	"github.com/MrEthical07/goWallet/gateway"
)

type fakeSource struct {
	snapshot goWallet.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goWallet.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWallet.MetricsSnapshot{
			Counters:   map[goWallet.MetricID]uint64{},
			Histograms: map[goWallet.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWallet.MetricsSnapshot{
			Counters: map[goWallet.MetricID]uint64{
				goWallet.MetricLoginSuccess:     7,
				goWallet.MetricJobPolicyFailure: 2,
			},
			Histograms: map[goWallet.MetricID][]uint64{
				goWallet.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"gowallet_login_success_total 7",
		"gowallet_job_policy_failure_total 2",
		"gowallet_transfer_submitted_total 0",
		"gowallet_login_latency_seconds_bucket{le=\"0.05\"} 1",
		"gowallet_login_latency_seconds_bucket{le=\"+Inf\"} 36",
		"gowallet_login_latency_seconds_count 36",
		"gowallet_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gowallet_session_authenticated") {
		t.Fatal("plain sources must not render session gauges")
	}
}

func TestRenderClientSessionGauges(t *testing.T) {
	c, err := goWallet.New().WithGateway(goWallet.ModeSimulated, gateway.Unavailable{}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if err := c.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	// Rejected locally, so at least one counter is non-zero.
	_, _ = c.RequestEmailChallenge(context.Background(), "nope")

	out := NewExporter(c).Render()
	for _, want := range []string{
		"gowallet_input_rejected_total 1",
		"gowallet_session_authenticated 0",
		"gowallet_mode_simulated 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWallet.MetricsSnapshot{
			Counters:   map[goWallet.MetricID]uint64{goWallet.MetricLoginSuccess: 1},
			Histograms: map[goWallet.MetricID][]uint64{},
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
	exp := NewExporterFromSource(fakeSource{
		snapshot: goWallet.MetricsSnapshot{
			Counters: map[goWallet.MetricID]uint64{
				goWallet.MetricLoginSuccess:      1000,
				goWallet.MetricLoginFailure:      40,
				goWallet.MetricTransferSubmitted: 800,
				goWallet.MetricJobStatusCheck:    2400,
				goWallet.MetricJobSucceeded:      700,
			},
			Histograms: map[goWallet.MetricID][]uint64{
				goWallet.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
