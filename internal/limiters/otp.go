package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/internal/rate"
	"github.com/redis/go-redis/v9"
)

// OTPAttemptConfig holds the per-action OTP verification thresholds.
type OTPAttemptConfig struct {
	Threshold    int
	Window       time.Duration
	LockDuration time.Duration
}

// OTPLimiter counts wrong OTP submissions per (action, account). Each action
// gets its own key prefixes so a lock on one action does not block another.
// Actions come from callers, so the limiter keeps no per-action state in
// process; all of it lives in Redis under TTLs.
type OTPLimiter struct {
	redis  redis.UniversalClient
	config OTPAttemptConfig
}

func NewOTPLimiter(client redis.UniversalClient, cfg OTPAttemptConfig) (*OTPLimiter, error) {
	if client == nil {
		return nil, errors.New("limiters: redis client required")
	}
	l := &OTPLimiter{redis: client, config: cfg}
	// Validate the configuration once up front.
	if _, err := l.window("validate"); err != nil {
		return nil, err
	}
	return l, nil
}

// RecordFailure counts one wrong code and reports whether the action is now
// locked for the account.
func (l *OTPLimiter) RecordFailure(ctx context.Context, action, accountID string) (int, bool, error) {
	w, err := l.window(action)
	if err != nil {
		return 0, false, err
	}
	hit, err := w.Hit(ctx, accountID)
	if err != nil {
		return 0, false, err
	}
	return hit.Attempts, hit.Locked, nil
}

func (l *OTPLimiter) IsLocked(ctx context.Context, action, accountID string) (bool, error) {
	w, err := l.window(action)
	if err != nil {
		return false, err
	}
	return w.Locked(ctx, accountID)
}

// ClearAttempts drops the failure counter but keeps an active lock.
func (l *OTPLimiter) ClearAttempts(ctx context.Context, action, accountID string) error {
	w, err := l.window(action)
	if err != nil {
		return err
	}
	return w.ClearAttempts(ctx, accountID)
}

// Reset drops both the counter and the lock.
func (l *OTPLimiter) Reset(ctx context.Context, action, accountID string) error {
	w, err := l.window(action)
	if err != nil {
		return err
	}
	return w.Reset(ctx, accountID)
}

func (l *OTPLimiter) Attempts(ctx context.Context, action, accountID string) (int, error) {
	w, err := l.window(action)
	if err != nil {
		return 0, err
	}
	return w.Attempts(ctx, accountID)
}

func (l *OTPLimiter) window(action string) (*rate.Window, error) {
	return rate.NewWindow(l.redis, rate.WindowConfig{
		CounterPrefix: internal.OTPAttemptPrefix(action),
		LockPrefix:    internal.OTPLockPrefix(action),
		Threshold:     l.config.Threshold,
		Window:        l.config.Window,
		LockDuration:  l.config.LockDuration,
	})
}
