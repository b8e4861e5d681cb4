package schedauth

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/MrEthical07/schedauth/email"
	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/internal/flows"
	"github.com/MrEthical07/schedauth/internal/stores"
	"go.uber.org/zap"
)

// Actions become part of state store keys.
var otpActionPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// RequestOTP issues a fresh code for (accountID, action) and returns it.
// A zero ttl means the configured default. Asking again before the send
// interval has passed returns ErrRateLimited.
func (e *Engine) RequestOTP(ctx context.Context, accountID, action string, ttl time.Duration) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if accountID == "" || !otpActionPattern.MatchString(action) {
		return "", ErrInvalidRequest
	}
	if ttl <= 0 {
		ttl = e.config.OTP.TTL
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return "", err
	}
	if err := e.otpStore.Issue(ctx, action, accountID, code, ttl); err != nil {
		if errors.Is(err, stores.ErrOTPRateLimited) {
			e.metricInc(MetricOTPRateLimited)
			e.emitAudit(ctx, eventOTPRateLimited, accountID, ErrRateLimited, actionMeta(action))
			return "", ErrRateLimited
		}
		return "", unavailable(err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, eventOTPCreated, accountID, nil, actionMeta(action))
	return code, nil
}

// SendOTP issues a code and emails it to the account. If delivery fails the
// code is withdrawn and ErrDeliveryFailure is returned; the send interval
// still applies. The code itself is only returned when OTP.RevealCode is
// set outside production, and is "" otherwise.
func (e *Engine) SendOTP(ctx context.Context, accountID, action string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if e.mailer == nil {
		return "", ErrDeliveryFailure
	}
	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", unavailable(err)
	}
	if account == nil {
		return "", ErrNotFound
	}

	code, err := e.RequestOTP(ctx, account.ID, action, 0)
	if err != nil {
		return "", err
	}

	msg, err := email.OTPMessage(account.Email, action, code, e.config.OTP.TTL)
	if err == nil {
		err = e.mailer.Send(ctx, msg)
	}
	if err != nil {
		if delErr := e.otpStore.Delete(ctx, action, account.ID); delErr != nil {
			e.warn("otp_withdraw_failed", zap.String("user_id", account.ID), zap.String("action", action), zap.Error(delErr))
		}
		e.metricInc(MetricOTPDeliveryFailure)
		e.emitAudit(ctx, eventOTPDeliveryFailed, account.ID, ErrDeliveryFailure, actionMeta(action))
		e.warn(eventOTPDeliveryFailed, zap.String("user_id", account.ID), zap.Error(err))
		return "", ErrDeliveryFailure
	}

	if e.config.OTP.RevealCode && !e.config.Production() {
		return code, nil
	}
	return "", nil
}

// VerifyOTP reports whether code is the live code for (accountID, action)
// and consumes it if so. Wrong codes count towards a lock; while locked
// every submission is rejected, including the right code.
func (e *Engine) VerifyOTP(ctx context.Context, accountID, action, code string) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	if accountID == "" || !otpActionPattern.MatchString(action) {
		return false, ErrInvalidRequest
	}

	res := flows.RunVerifyOTP(ctx, accountID, action, code, e.flows.VerifyOTP)
	switch res.Failure {
	case flows.VerifyOTPOK:
		e.metricInc(MetricOTPVerified)
		e.emitAudit(ctx, eventOTPVerified, accountID, nil, actionMeta(action))
		return true, nil
	case flows.VerifyOTPLocked:
		e.metricInc(MetricOTPLocked)
		e.emitAudit(ctx, eventOTPLocked, accountID, ErrAccountLocked, actionMeta(action))
		return false, nil
	case flows.VerifyOTPMissing:
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, eventOTPMissing, accountID, ErrInvalidCredentials, actionMeta(action))
		return false, nil
	case flows.VerifyOTPMismatch:
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, eventOTPFailedAttempt, accountID, ErrInvalidCredentials, otpAttemptMeta(action, res.Attempts))
		return false, nil
	case flows.VerifyOTPLockedNow:
		e.metricInc(MetricOTPFailure)
		e.metricInc(MetricOTPLocked)
		e.emitAudit(ctx, eventOTPLocked, accountID, ErrAccountLocked, otpAttemptMeta(action, res.Attempts))
		return false, nil
	default:
		return false, unavailable(res.Err)
	}
}

func actionMeta(action string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"action": action}
	}
}

func otpAttemptMeta(action string, attempts int) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"action": action, "attempts": strconv.Itoa(attempts)}
	}
}
