package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGate "github.com/MrEthical07/goGate"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	snapshot goGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func gather(t *testing.T, src fakeSource) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := NewCollectorFromSource(src).Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestCollectDisabledOnlyExportsDropped(t *testing.T) {
	got := gather(t, fakeSource{snapshot: goGate.MetricsSnapshot{
		Counters:   map[goGate.MetricID]uint64{},
		Histograms: map[goGate.MetricID][]uint64{},
	}})

	if len(got) != 1 {
		t.Fatalf("expected only the audit dropped family, got %d", len(got))
	}
	if _, ok := got["gogate_audit_dropped_total"]; !ok {
		t.Fatal("missing gogate_audit_dropped_total")
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	got := gather(t, fakeSource{
		snapshot: goGate.MetricsSnapshot{
			Counters: map[goGate.MetricID]uint64{
				goGate.MetricLoginSuccess: 7,
			},
			Histograms: map[goGate.MetricID][]uint64{
				goGate.MetricIdentityLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	login := got["gogate_login_success_total"]
	if login == nil {
		t.Fatal("missing gogate_login_success_total")
	}
	if v := login.GetMetric()[0].GetCounter().GetValue(); v != 7 {
		t.Fatalf("login success: got %v, want 7", v)
	}
	if failures := got["gogate_login_failure_total"]; failures == nil || failures.GetMetric()[0].GetCounter().GetValue() != 0 {
		t.Fatal("expected zero-valued login failure counter")
	}

	hist := got["gogate_identity_latency_seconds"]
	if hist == nil {
		t.Fatal("missing gogate_identity_latency_seconds")
	}
	h := hist.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("sample count: got %d, want 36", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if len(buckets) != 7 {
		t.Fatalf("finite buckets: got %d, want 7", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.0001 || buckets[0].GetCumulativeCount() != 1 {
		t.Fatalf("first bucket: %v", buckets[0])
	}
	if buckets[6].GetUpperBound() != 0.01 || buckets[6].GetCumulativeCount() != 28 {
		t.Fatalf("last finite bucket: %v", buckets[6])
	}

	if v := got["gogate_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Fatalf("audit dropped: got %v, want 2", v)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goGate.MetricsSnapshot{
		Counters: map[goGate.MetricID]uint64{goGate.MetricRecoveryRequested: 3},
	}})

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "gogate_recovery_requested_total 3") {
		t.Fatalf("expected recovery counter in output, got:\n%s", body)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := fakeSource{}
	if err := NewCollectorFromSource(src).Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := NewCollectorFromSource(src).Register(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
