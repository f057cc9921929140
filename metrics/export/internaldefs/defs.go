package internaldefs

import (
	guardkit "github.com/guardkit/guardkit"
)

// CounterDef defines a public type used by guardkit APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   guardkit.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by guardkit APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   guardkit.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the defense pipeline.
var CounterDefs = []CounterDef{
	{ID: guardkit.MetricCSRFPassed, Name: "guardkit_csrf_passed_total", Help: "Requests passing double-submit validation."},
	{ID: guardkit.MetricCSRFMissing, Name: "guardkit_csrf_missing_total", Help: "Requests rejected with a missing CSRF token."},
	{ID: guardkit.MetricCSRFMismatch, Name: "guardkit_csrf_mismatch_total", Help: "Requests rejected with mismatched CSRF tokens."},
	{ID: guardkit.MetricCSRFBearerBypass, Name: "guardkit_csrf_bearer_bypass_total", Help: "Requests bypassing CSRF via a valid bearer token."},
	{ID: guardkit.MetricCSRFExempt, Name: "guardkit_csrf_exempt_total", Help: "Requests skipping CSRF validation via path exemption."},
	{ID: guardkit.MetricRateAllowed, Name: "guardkit_rate_allowed_total", Help: "Rate-limit checks within budget."},
	{ID: guardkit.MetricRateLimited, Name: "guardkit_rate_limited_total", Help: "Rate-limit checks that denied requests."},
	{ID: guardkit.MetricChallengeIssued, Name: "guardkit_challenge_issued_total", Help: "Issued image challenges."},
	{ID: guardkit.MetricChallengeVerified, Name: "guardkit_challenge_verified_total", Help: "Successfully verified image challenges."},
	{ID: guardkit.MetricChallengeRejected, Name: "guardkit_challenge_rejected_total", Help: "Rejected image challenge answers."},
	{ID: guardkit.MetricCaptchaVerified, Name: "guardkit_captcha_verified_total", Help: "Successfully verified CAPTCHA submissions."},
	{ID: guardkit.MetricCaptchaRejected, Name: "guardkit_captcha_rejected_total", Help: "Rejected CAPTCHA submissions."},
	{ID: guardkit.MetricCaptchaFallback, Name: "guardkit_captcha_fallback_total", Help: "Provider fallback transitions."},
	{ID: guardkit.MetricProviderUnavailable, Name: "guardkit_provider_unavailable_total", Help: "CAPTCHA provider outages observed."},
}

// HistogramDefs is an exported constant or variable used by the defense pipeline.
var HistogramDefs = []HistogramDef{
	{ID: guardkit.MetricVerifyLatency, Name: "guardkit_verify_latency_seconds", Help: "CAPTCHA verification latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the defense pipeline.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
