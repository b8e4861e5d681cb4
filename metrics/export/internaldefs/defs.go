package internaldefs

import (
	"github.com/MrEthical07/schedauth"
)

type CounterDef struct {
	ID   schedauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   schedauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: schedauth.MetricRegisterSuccess, Name: "schedauth_register_success_total", Help: "Accounts created."},
	{ID: schedauth.MetricRegisterConflict, Name: "schedauth_register_conflict_total", Help: "Registrations rejected because the email or username was taken."},
	{ID: schedauth.MetricRegisterPolicyRejected, Name: "schedauth_register_policy_rejected_total", Help: "Registrations rejected by the password policy."},
	{ID: schedauth.MetricLoginSuccess, Name: "schedauth_login_success_total", Help: "Successful password authentications."},
	{ID: schedauth.MetricLoginFailure, Name: "schedauth_login_failure_total", Help: "Failed password authentications."},
	{ID: schedauth.MetricLoginLocked, Name: "schedauth_login_locked_total", Help: "Authentications refused because the account was locked."},
	{ID: schedauth.MetricAccountLocked, Name: "schedauth_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: schedauth.MetricTokensIssued, Name: "schedauth_tokens_issued_total", Help: "Access and refresh token pairs issued at login."},
	{ID: schedauth.MetricRefreshSuccess, Name: "schedauth_refresh_success_total", Help: "Refresh tokens exchanged."},
	{ID: schedauth.MetricRefreshRevoked, Name: "schedauth_refresh_revoked_total", Help: "Refresh attempts with a revoked or already used token."},
	{ID: schedauth.MetricRefreshInvalid, Name: "schedauth_refresh_invalid_total", Help: "Refresh attempts with an undecodable or wrong-kind token."},
	{ID: schedauth.MetricLogout, Name: "schedauth_logout_total", Help: "Logout calls."},
	{ID: schedauth.MetricLogoutAll, Name: "schedauth_logout_all_total", Help: "Revoke-all-sessions operations."},
	{ID: schedauth.MetricAccessBlacklisted, Name: "schedauth_access_blacklisted_total", Help: "Access tokens refused because they were logged out."},
	{ID: schedauth.MetricOTPIssued, Name: "schedauth_otp_issued_total", Help: "One-time passcodes issued."},
	{ID: schedauth.MetricOTPRateLimited, Name: "schedauth_otp_rate_limited_total", Help: "Passcode requests refused by the send interval."},
	{ID: schedauth.MetricOTPDeliveryFailure, Name: "schedauth_otp_delivery_failure_total", Help: "Passcodes withdrawn after the email could not be sent."},
	{ID: schedauth.MetricOTPVerified, Name: "schedauth_otp_verified_total", Help: "Passcodes verified and consumed."},
	{ID: schedauth.MetricOTPFailure, Name: "schedauth_otp_failure_total", Help: "Wrong or missing passcodes submitted."},
	{ID: schedauth.MetricOTPLocked, Name: "schedauth_otp_locked_total", Help: "Passcode checks refused or locked by the attempt limit."},
	{ID: schedauth.MetricOAuthStateCreated, Name: "schedauth_oauth_state_created_total", Help: "OAuth state tokens created."},
	{ID: schedauth.MetricOAuthStateRejected, Name: "schedauth_oauth_state_rejected_total", Help: "OAuth callbacks with an unknown, expired or reused state."},
	{ID: schedauth.MetricPlatformLinked, Name: "schedauth_platform_linked_total", Help: "Provider accounts linked or relinked."},
	{ID: schedauth.MetricPlatformUnlinked, Name: "schedauth_platform_unlinked_total", Help: "Provider accounts unlinked."},
	{ID: schedauth.MetricCipherFailure, Name: "schedauth_cipher_failure_total", Help: "Stored provider tokens that failed to decrypt."},
}

var HistogramDefs = []HistogramDef{
	{ID: schedauth.MetricAuthenticateLatency, Name: "schedauth_authenticate_latency_seconds", Help: "Password authentication latency."},
	{ID: schedauth.MetricValidateLatency, Name: "schedauth_validate_latency_seconds", Help: "Access token validation latency."},
}

const AuditDroppedName = "schedauth_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// HistogramBounds are the upper bounds of the eight latency buckets, in
// seconds, as Prometheus "le" labels.
var HistogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// Cumulative converts raw per-bucket counts into cumulative counts. Missing
// buckets read as zero; extra ones are ignored.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
