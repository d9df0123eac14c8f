package goGate

import (
	"context"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricIdentityLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatalf("expected disabled metrics to stay at zero")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	if nilMetrics.Enabled() {
		t.Fatalf("nil metrics must report disabled")
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []time.Duration{
		50 * time.Microsecond,
		200 * time.Microsecond,
		time.Millisecond,
		3 * time.Millisecond,
		time.Second,
	}
	for _, d := range samples {
		m.Observe(MetricIdentityLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	got := snap.Histograms[MetricIdentityLatency]
	want := []uint64{1, 1, 0, 1, 0, 1, 0, 1}
	if len(got) != HistogramBuckets {
		t.Fatalf("expected %d buckets, got %d", HistogramBuckets, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: got %d want %d (all %v)", i, got[i], want[i], got)
		}
	}
	if _, ok := snap.Counters[MetricIdentityLatency]; ok {
		t.Fatalf("latency must not appear as a counter")
	}
}

func TestEngineCountsLoginsAndLogouts(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, 1, "alex@example.com", "alex", testPassword)
	ctx := context.Background()

	if _, err := env.engine.Authenticate(ctx, newTestRequest(), "alex", "nope-nope-nope"); err == nil {
		t.Fatalf("expected bad password to fail")
	}
	req := newTestRequest()
	if _, err := env.engine.Authenticate(ctx, req, "alex", testPassword); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	next := followUp(req)
	if env.engine.Identity(ctx, next) == nil {
		t.Fatalf("expected identity")
	}
	if err := env.engine.ClearIdentity(ctx, next); err != nil {
		t.Fatalf("ClearIdentity failed: %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricLoginFailure:      1,
		MetricLoginSuccess:      1,
		MetricIdentityResolved:  1,
		MetricLogout:            1,
		MetricAccountRegistered: 1,
	}
	for id, want := range checks {
		if snap.Counters[id] != want {
			t.Fatalf("metric %d: got %d want %d", id, snap.Counters[id], want)
		}
	}
}
