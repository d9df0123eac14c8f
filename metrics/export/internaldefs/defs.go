package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef binds a goGate counter to its exported name.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef binds a goGate histogram to its exported name.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful logins."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Failed logins."},
	{ID: goGate.MetricIdentityResolved, Name: "gogate_identity_resolved_total", Help: "Requests whose cookies resolved to a user."},
	{ID: goGate.MetricIdentityRejected, Name: "gogate_identity_rejected_total", Help: "Requests whose cookies failed verification."},
	{ID: goGate.MetricStrayCookiesPurged, Name: "gogate_stray_cookies_purged_total", Help: "Stale hash cookies removed from responses."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Identity clears."},
	{ID: goGate.MetricAccountRegistered, Name: "gogate_account_registered_total", Help: "Authentication records created."},
	{ID: goGate.MetricAccountDuplicate, Name: "gogate_account_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goGate.MetricUsernameChanged, Name: "gogate_username_changed_total", Help: "Username changes."},
	{ID: goGate.MetricPasswordRehashed, Name: "gogate_password_rehashed_total", Help: "Hashes upgraded to current parameters on login."},
	{ID: goGate.MetricPasswordReset, Name: "gogate_password_reset_total", Help: "Password resets."},
	{ID: goGate.MetricRecoveryRequested, Name: "gogate_recovery_requested_total", Help: "Recovery tokens issued."},
	{ID: goGate.MetricRecoveryThrottled, Name: "gogate_recovery_throttled_total", Help: "Recovery requests refused by the throttle."},
	{ID: goGate.MetricRecoveryConsumed, Name: "gogate_recovery_consumed_total", Help: "Recovery tokens used to change a password."},
	{ID: goGate.MetricRecoveryRejected, Name: "gogate_recovery_rejected_total", Help: "Recovery tokens rejected."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricIdentityLatency, Name: "gogate_identity_latency_seconds", Help: "Cookie identity resolution latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "gogate_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the sink buffer was full."
)

// HistogramBounds holds the upper bound of each finite bucket in seconds.
// The final bucket is +Inf and is implied.
var HistogramBounds = []float64{
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.005,
	0.01,
}

// HistogramBoundLabels renders HistogramBounds plus +Inf as "le" label
// values.
var HistogramBoundLabels = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-width array, padding with zero.
func NormalizeBuckets(raw []uint64) [goGate.HistogramBuckets]uint64 {
	var out [goGate.HistogramBuckets]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [goGate.HistogramBuckets]uint64) [goGate.HistogramBuckets]uint64 {
	var out [goGate.HistogramBuckets]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
