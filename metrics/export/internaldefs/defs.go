package internaldefs

import (
	goExpense "github.com/MrEthical07/goExpense"
)

// CounterDef maps one engine counter to its exported name.
type CounterDef struct {
	ID   goExpense.MetricID
	Name string
	Help string
}

// HistogramDef maps one engine histogram to its exported name. Names end in _seconds.
type HistogramDef struct {
	ID   goExpense.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events dropped by the dispatcher.
const AuditDroppedName = "goexpense_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: goExpense.MetricLoginSuccess, Name: "goexpense_login_success_total", Help: "Successful logins."},
	{ID: goExpense.MetricLoginFailure, Name: "goexpense_login_failure_total", Help: "Failed logins, including backend failures."},
	{ID: goExpense.MetricLoginRateLimited, Name: "goexpense_login_rate_limited_total", Help: "Logins rejected by the failed-attempt limiter."},
	{ID: goExpense.MetricRefreshSuccess, Name: "goexpense_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goExpense.MetricRefreshFailure, Name: "goexpense_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goExpense.MetricRefreshReuseDetected, Name: "goexpense_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation or revocation."},
	{ID: goExpense.MetricRefreshRateLimited, Name: "goexpense_refresh_rate_limited_total", Help: "Refresh attempts rejected by the limiter."},
	{ID: goExpense.MetricAuthenticateSuccess, Name: "goexpense_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: goExpense.MetricAuthenticateFailure, Name: "goexpense_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: goExpense.MetricSessionCreated, Name: "goexpense_session_created_total", Help: "Sessions opened by login."},
	{ID: goExpense.MetricSessionRevoked, Name: "goexpense_session_revoked_total", Help: "Sessions revoked by replay handling, logout-all or single-session logins."},
	{ID: goExpense.MetricLogout, Name: "goexpense_logout_total", Help: "Single-session logouts."},
	{ID: goExpense.MetricLogoutAll, Name: "goexpense_logout_all_total", Help: "Logout-all operations."},
	{ID: goExpense.MetricTokenIntegrityFault, Name: "goexpense_token_integrity_fault_total", Help: "Generated token ids that already existed in the store."},
	{ID: goExpense.MetricBackendUnavailable, Name: "goexpense_backend_unavailable_total", Help: "Operations that failed because a backend was unreachable."},
}

var HistogramDefs = []HistogramDef{
	{ID: goExpense.MetricAuthenticateLatency, Name: "goexpense_authenticate_latency_seconds", Help: "Access-token validation latency."},
}

// BucketBounds returns the finite histogram upper bounds in seconds.
func BucketBounds() []float64 {
	out := make([]float64, len(goExpense.HistogramBucketBounds))
	for i, d := range goExpense.HistogramBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
