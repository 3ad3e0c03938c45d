package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/MrEthical07/superjwt/indexer"
)

type fakeSource struct {
	snapshot superjwt.MetricsSnapshot
	drops    superjwt.AuditDrops
}

func (f fakeSource) MetricsSnapshot() superjwt.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDrops() superjwt.AuditDrops           { return f.drops }

func emptySnapshot() superjwt.MetricsSnapshot {
	return superjwt.MetricsSnapshot{
		Counters:   map[superjwt.MetricID]uint64{},
		Histograms: map[superjwt.MetricID][]uint64{},
		Networks:   map[string]superjwt.NetworkOutcomes{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: emptySnapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderLabelsOutcomesNetworksAndReasons(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: superjwt.MetricsSnapshot{
			Counters: map[superjwt.MetricID]uint64{
				superjwt.MetricAuthorizeSuccess:  3,
				superjwt.MetricAuthorizeNoStream: 1,
				superjwt.MetricLookupFailure:     1,
			},
			Histograms: map[superjwt.MetricID][]uint64{
				superjwt.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			Networks: map[string]superjwt.NetworkOutcomes{
				"polygon": {Issued: 3},
				"base":    {NoStream: 1, LookupFailures: 1},
			},
		},
		drops: superjwt.AuditDrops{Full: 2, Closed: 1},
	})

	out := exp.Render()
	for _, want := range []string{
		`superjwt_authorize_total{outcome="issued"} 3`,
		`superjwt_authorize_total{outcome="no_stream"} 1`,
		`superjwt_authorize_total{outcome="missing_params"} 0`,
		`superjwt_verify_total{result="rejected"} 0`,
		`superjwt_lookup_failures_total 1`,
		`superjwt_network_authorize_total{network="polygon",outcome="issued"} 3`,
		`superjwt_network_authorize_total{network="base",outcome="lookup_failure"} 1`,
		`superjwt_stream_hit_ratio 0.75`,
		`superjwt_authorize_latency_seconds_bucket{le="0.005"} 1`,
		`superjwt_authorize_latency_seconds_bucket{le="+Inf"} 36`,
		`superjwt_authorize_latency_seconds_count 36`,
		`superjwt_audit_dropped_total{reason="buffer_full"} 2`,
		`superjwt_audit_dropped_total{reason="after_close"} 1`,
		"# TYPE superjwt_stream_hit_ratio gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Index(out, `network="base"`) > strings.Index(out, `network="polygon"`) {
		t.Fatalf("expected networks in sorted order, got:\n%s", out)
	}
}

func TestRenderOmitsRatioBeforeAnyLookup(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[superjwt.MetricVerifySuccess] = 4
	out := NewPrometheusExporterFromSource(fakeSource{snapshot: snap}).Render()

	if strings.Contains(out, "superjwt_stream_hit_ratio") {
		t.Fatalf("expected no hit ratio without lookups, got:\n%s", out)
	}
	if strings.Contains(out, "superjwt_authorize_latency_seconds") {
		t.Fatalf("expected no histogram when latency is disabled, got:\n%s", out)
	}
	if !strings.Contains(out, `superjwt_verify_total{result="ok"} 4`) {
		t.Fatalf("expected verify counter, got:\n%s", out)
	}
}

func TestRenderEscapesLabelValues(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[superjwt.MetricAuthorizeSuccess] = 1
	snap.Networks[`dev"net`] = superjwt.NetworkOutcomes{Issued: 1}

	out := NewPrometheusExporterFromSource(fakeSource{snapshot: snap}).Render()
	if !strings.Contains(out, `network="dev\"net"`) {
		t.Fatalf("expected escaped network label, got:\n%s", out)
	}
}

type streamsFor map[string]bool

func (s streamsFor) FindActiveStream(_ context.Context, params map[string]any) ([]indexer.Stream, error) {
	if s[params["receiver"].(string)] {
		return []indexer.Stream{{ID: "s1"}}, nil
	}
	return nil, nil
}

func TestRenderFromAuthority(t *testing.T) {
	a, err := superjwt.New().WithMetricsEnabled(true).WithStreamFinder(streamsFor{"0xpaid": true}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer a.Close()

	secret := []byte("prometheus-secret")
	for _, receiver := range []string{"0xpaid", "0xpaid", "0xunpaid"} {
		params := superjwt.StreamParams{"network": "base", "sender": "0xa", "receiver": receiver, "asset": "0xc"}
		_, _ = a.Authorize(context.Background(), params, secret, superjwt.SigningOptions{})
	}
	_, _ = a.Verify("nope", secret)

	out := NewPrometheusExporter(a).Render()
	for _, want := range []string{
		`superjwt_authorize_total{outcome="issued"} 2`,
		`superjwt_authorize_total{outcome="no_stream"} 1`,
		`superjwt_verify_total{result="rejected"} 1`,
		`superjwt_network_authorize_total{network="base",outcome="issued"} 2`,
		`superjwt_network_authorize_total{network="base",outcome="no_stream"} 1`,
		`superjwt_network_authorize_total{network="polygon",outcome="issued"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "superjwt_stream_hit_ratio 0.666") {
		t.Fatalf("expected hit ratio of two thirds, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[superjwt.MetricAuthorizeSuccess] = 1
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: snap})

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
		snapshot: superjwt.MetricsSnapshot{
			Counters: map[superjwt.MetricID]uint64{
				superjwt.MetricAuthorizeSuccess:  1000,
				superjwt.MetricAuthorizeNoStream: 40,
				superjwt.MetricLookupFailure:     3,
				superjwt.MetricVerifySuccess:     8000,
				superjwt.MetricVerifyFailure:     10,
			},
			Histograms: map[superjwt.MetricID][]uint64{
				superjwt.MetricAuthorizeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
			Networks: map[string]superjwt.NetworkOutcomes{
				"mainnet": {Issued: 600, NoStream: 20},
				"polygon": {Issued: 400, NoStream: 20, LookupFailures: 3},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
