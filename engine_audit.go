package schedauth

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/schedauth/internal/audit"
	"go.uber.org/zap"
)

// Event names are consumed by existing log pipelines; keep them stable.
const (
	eventUserRegistered       = "user_registered"
	eventRegisterRejected     = "register_rejected"
	eventAuthSuccess          = "auth_success"
	eventAuthUnknownAccount   = "auth_failed_unknown_account"
	eventAuthWrongPassword    = "auth_failed_wrong_password"
	eventAuthLockedOut        = "auth_rejected_locked"
	eventAuthDisabled         = "auth_rejected_disabled"
	eventUserLocked           = "user_locked_due_to_failed_logins"
	eventAccountUnlocked      = "account_unlocked"
	eventTokensIssued         = "tokens_issued"
	eventRefreshRotated       = "refresh_rotated"
	eventRefreshReuseRejected = "refresh_reuse_rejected"
	eventRefreshRevoked       = "refresh_revoked_on_logout"
	eventAccessBlacklisted    = "access_blacklisted_on_logout"
	eventSessionsRevoked      = "sessions_revoked"
	eventOTPCreated           = "otp_created"
	eventOTPRateLimited       = "otp_rate_limited"
	eventOTPDeliveryFailed    = "otp_delivery_failed"
	eventOTPVerified          = "otp_verified"
	eventOTPLocked            = "otp_locked"
	eventOTPMissing           = "otp_missing"
	eventOTPFailedAttempt     = "otp_failed_attempt"
	eventOAuthStateCreated    = "oauth_state_created"
	eventPlatformLinked       = "platform_linked"
	eventPlatformUnlinked     = "platform_unlinked"
	eventPlatformDecryptFail  = "platform_token_decrypt_failed"
)

// auditReason maps an error to the short code stored on failed events.
func auditReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordPolicy):
		return "password_policy"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid_token"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrDeliveryFailure):
		return "delivery_failure"
	case errors.Is(err, ErrCipherFailure):
		return "cipher_failure"
	case errors.Is(err, ErrUnavailable):
		return "backend_unavailable"
	default:
		return "internal_error"
	}
}

// emitAudit sends one event. meta is only evaluated when auditing is on.
func (e *Engine) emitAudit(ctx context.Context, eventType, accountID string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	ev := internalaudit.Event{
		Timestamp: e.now().UTC(),
		Type:      eventType,
		AccountID: accountID,
		IP:        ClientIPFromContext(ctx),
		Success:   err == nil,
		Reason:    auditReason(err),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	if ua := UserAgentFromContext(ctx); ua != "" {
		if ev.Metadata == nil {
			ev.Metadata = map[string]string{}
		}
		ev.Metadata["user_agent"] = ua
	}
	e.audit.Emit(ctx, ev)
}

func (e *Engine) warn(msg string, fields ...zap.Field) {
	e.log.Warn(msg, fields...)
}
