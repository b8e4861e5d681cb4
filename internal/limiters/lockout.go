package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/internal/rate"
	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds the brute-force guard thresholds.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
}

// LockoutLimiter counts failed logins per account and locks the account for
// Duration once Threshold failures land inside Window.
type LockoutLimiter struct {
	window *rate.Window
}

// NewLockoutLimiter creates the login lockout limiter using the la:attempts:
// and la:lock: key namespaces.
func NewLockoutLimiter(client redis.UniversalClient, cfg LockoutConfig) (*LockoutLimiter, error) {
	w, err := rate.NewWindow(client, rate.WindowConfig{
		CounterPrefix: internal.LoginAttemptPrefix,
		LockPrefix:    internal.LoginLockPrefix,
		Threshold:     cfg.Threshold,
		Window:        cfg.Window,
		LockDuration:  cfg.Duration,
	})
	if err != nil {
		return nil, err
	}
	return &LockoutLimiter{window: w}, nil
}

// RecordFailure counts one failed login and reports the attempt count and
// whether this failure locked the account.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, accountID string) (int, bool, error) {
	hit, err := l.window.Hit(ctx, accountID)
	if err != nil {
		return 0, false, err
	}
	return hit.Attempts, hit.Locked, nil
}

func (l *LockoutLimiter) IsLocked(ctx context.Context, accountID string) (bool, error) {
	return l.window.Locked(ctx, accountID)
}

// Reset clears the counter and any lock. Called after a successful login and
// by the unlock administration path.
func (l *LockoutLimiter) Reset(ctx context.Context, accountID string) error {
	return l.window.Reset(ctx, accountID)
}

func (l *LockoutLimiter) Attempts(ctx context.Context, accountID string) (int, error) {
	return l.window.Attempts(ctx, accountID)
}

func (l *LockoutLimiter) LockRemaining(ctx context.Context, accountID string) (time.Duration, error) {
	return l.window.LockRemaining(ctx, accountID)
}
