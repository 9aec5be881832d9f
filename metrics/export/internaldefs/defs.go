package internaldefs

import (
	goWallet "github.com/MrEthical07/goWallet"
)

type CounterDef struct {
	ID   goWallet.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goWallet.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goWallet.MetricLoginSuccess, Name: "gowallet_login_success_total", Help: "Completed logins."},
	{ID: goWallet.MetricLoginFailure, Name: "gowallet_login_failure_total", Help: "Logins that reached the gateway and failed."},
	{ID: goWallet.MetricLoginInProgressRejected, Name: "gowallet_login_in_progress_rejected_total", Help: "Logins rejected while another login was in flight."},
	{ID: goWallet.MetricInputRejected, Name: "gowallet_input_rejected_total", Help: "Operations rejected by local validation."},
	{ID: goWallet.MetricChallengeIssued, Name: "gowallet_challenge_issued_total", Help: "Email verification challenges issued."},
	{ID: goWallet.MetricChallengeFailure, Name: "gowallet_challenge_failure_total", Help: "Email verification challenge requests that failed."},
	{ID: goWallet.MetricResendRejected, Name: "gowallet_resend_rejected_total", Help: "Resends attempted before the countdown elapsed."},
	{ID: goWallet.MetricRestoreVerified, Name: "gowallet_restore_verified_total", Help: "Stored sessions revalidated at startup."},
	{ID: goWallet.MetricRestoreDegraded, Name: "gowallet_restore_degraded_total", Help: "Simulated sessions restored with a placeholder identity."},
	{ID: goWallet.MetricRestoreRejected, Name: "gowallet_restore_rejected_total", Help: "Stored sessions rejected at startup."},
	{ID: goWallet.MetricLogout, Name: "gowallet_logout_total", Help: "Logout operations."},
	{ID: goWallet.MetricLogoutRemoteFailure, Name: "gowallet_logout_remote_failure_total", Help: "Logouts whose remote invalidation failed."},
	{ID: goWallet.MetricModeChanged, Name: "gowallet_mode_changed_total", Help: "Gateway mode switches."},
	{ID: goWallet.MetricTransferSubmitted, Name: "gowallet_transfer_submitted_total", Help: "Transfers accepted by the gateway."},
	{ID: goWallet.MetricTransferRejected, Name: "gowallet_transfer_rejected_total", Help: "Transfers rejected locally or by the gateway."},
	{ID: goWallet.MetricJobStatusCheck, Name: "gowallet_job_status_check_total", Help: "Applied job status checks."},
	{ID: goWallet.MetricJobSucceeded, Name: "gowallet_job_succeeded_total", Help: "Jobs that reached Succeeded."},
	{ID: goWallet.MetricJobFailed, Name: "gowallet_job_failed_total", Help: "Jobs failed by the gateway."},
	{ID: goWallet.MetricJobPolicyFailure, Name: "gowallet_job_policy_failure_total", Help: "Jobs failed by the attempt ceiling."},
	{ID: goWallet.MetricJobUnknown, Name: "gowallet_job_unknown_total", Help: "Jobs the gateway did not recognize."},
	{ID: goWallet.MetricJobsCancelled, Name: "gowallet_jobs_cancelled_total", Help: "Jobs detached by a session change."},
}

var HistogramDefs = []HistogramDef{
	{ID: goWallet.MetricLoginLatency, Name: "gowallet_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the client latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
