package schedauth

import (
	"time"

	internalmetrics "github.com/MrEthical07/schedauth/internal/metrics"
)

type (
	MetricID        = internalmetrics.ID
	MetricsSnapshot = internalmetrics.Snapshot
)

const (
	MetricRegisterSuccess        = internalmetrics.RegisterSuccess
	MetricRegisterConflict       = internalmetrics.RegisterConflict
	MetricRegisterPolicyRejected = internalmetrics.RegisterPolicyRejected
	MetricLoginSuccess           = internalmetrics.LoginSuccess
	MetricLoginFailure           = internalmetrics.LoginFailure
	MetricLoginLocked            = internalmetrics.LoginLocked
	MetricAccountLocked          = internalmetrics.AccountLocked
	MetricTokensIssued           = internalmetrics.TokensIssued
	MetricRefreshSuccess         = internalmetrics.RefreshSuccess
	MetricRefreshRevoked         = internalmetrics.RefreshRevoked
	MetricRefreshInvalid         = internalmetrics.RefreshInvalid
	MetricLogout                 = internalmetrics.Logout
	MetricLogoutAll              = internalmetrics.LogoutAll
	MetricAccessBlacklisted      = internalmetrics.AccessBlacklisted
	MetricOTPIssued              = internalmetrics.OTPIssued
	MetricOTPRateLimited         = internalmetrics.OTPRateLimited
	MetricOTPDeliveryFailure     = internalmetrics.OTPDeliveryFailure
	MetricOTPVerified            = internalmetrics.OTPVerified
	MetricOTPFailure             = internalmetrics.OTPFailure
	MetricOTPLocked              = internalmetrics.OTPLocked
	MetricOAuthStateCreated      = internalmetrics.OAuthStateCreated
	MetricOAuthStateRejected     = internalmetrics.OAuthStateRejected
	MetricPlatformLinked         = internalmetrics.PlatformLinked
	MetricPlatformUnlinked       = internalmetrics.PlatformUnlinked
	MetricCipherFailure          = internalmetrics.CipherFailure
	MetricAuthenticateLatency    = internalmetrics.AuthenticateLatency
	MetricValidateLatency        = internalmetrics.ValidateLatency
)

// MetricsSnapshot returns current counter values. It is empty when metrics
// are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil {
		return
	}
	e.metrics.Observe(id, d)
}
