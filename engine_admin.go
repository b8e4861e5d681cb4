package schedauth

import (
	"context"
	"time"
)

// LockoutStatus is the brute-force guard's view of one account.
type LockoutStatus struct {
	Attempts  int
	Locked    bool
	Remaining time.Duration
}

// LoginAttempts reports the failed-login counter and lock of accountID.
// Counters expire on their own; this is for support tooling only.
func (e *Engine) LoginAttempts(ctx context.Context, accountID string) (LockoutStatus, error) {
	if err := e.ready(); err != nil {
		return LockoutStatus{}, err
	}
	attempts, err := e.lockout.Attempts(ctx, accountID)
	if err != nil {
		return LockoutStatus{}, unavailable(err)
	}
	remaining, err := e.lockout.LockRemaining(ctx, accountID)
	if err != nil {
		return LockoutStatus{}, unavailable(err)
	}
	return LockoutStatus{Attempts: attempts, Locked: remaining > 0, Remaining: remaining}, nil
}

// UnlockAccount clears the failed-login counter and lock of accountID.
func (e *Engine) UnlockAccount(ctx context.Context, accountID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if accountID == "" {
		return ErrInvalidRequest
	}
	if err := e.lockout.Reset(ctx, accountID); err != nil {
		return unavailable(err)
	}
	e.emitAudit(ctx, eventAccountUnlocked, accountID, nil, nil)
	return nil
}

// ResetOTPAttempts clears the wrong-code counter and lock for one
// (account, action) pair. The live code, if any, is left alone.
func (e *Engine) ResetOTPAttempts(ctx context.Context, accountID, action string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if accountID == "" || !otpActionPattern.MatchString(action) {
		return ErrInvalidRequest
	}
	if err := e.otpLimiter.Reset(ctx, action, accountID); err != nil {
		return unavailable(err)
	}
	e.emitAudit(ctx, eventAccountUnlocked, accountID, nil, actionMeta(action))
	return nil
}
