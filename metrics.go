package goGate

import (
	"sync/atomic"
	"time"
)

// MetricID names one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricIdentityResolved
	MetricIdentityRejected
	MetricStrayCookiesPurged
	MetricLogout
	MetricAccountRegistered
	MetricAccountDuplicate
	MetricUsernameChanged
	MetricPasswordRehashed
	MetricPasswordReset
	MetricRecoveryRequested
	MetricRecoveryThrottled
	MetricRecoveryConsumed
	MetricRecoveryRejected
	// MetricIdentityLatency is the only histogram: cookie decode time.
	MetricIdentityLatency
	metricIDCount
)

// HistogramBuckets is the number of latency buckets in a snapshot.
const HistogramBuckets = 8

const cacheLineSize = 64

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	enabled bool
	latency bool
	counter [metricIDCount]paddedCounter
	buckets [HistogramBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms hold
// non-cumulative bucket counts.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counter[id].value.Add(1)
}

// Observe records a latency sample for MetricIdentityLatency.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id != MetricIdentityLatency {
		return
	}
	m.buckets[bucketIndex(d)].Add(1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counter[id].value.Load()
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricIdentityLatency {
			continue
		}
		s.Counters[id] = m.counter[id].value.Load()
	}

	if m.latency {
		b := make([]uint64, HistogramBuckets)
		for i := range b {
			b[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricIdentityLatency] = b
	}
	return s
}

// bucketIndex maps d onto upper bounds of 0.1, 0.25, 0.5, 1, 2.5, 5, 10 ms
// and +Inf. Identity decode is pure CPU plus one record lookup.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()
	switch {
	case us <= 100:
		return 0
	case us <= 250:
		return 1
	case us <= 500:
		return 2
	case us <= 1000:
		return 3
	case us <= 2500:
		return 4
	case us <= 5000:
		return 5
	case us <= 10000:
		return 6
	default:
		return 7
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// MetricsSnapshot returns the engine's current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}
