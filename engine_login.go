package schedauth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/schedauth/internal/flows"
	"go.uber.org/zap"
)

// Authenticate checks an email and password. Unknown emails and wrong
// passwords both return ErrInvalidCredentials after the same amount of
// hashing work. A locked account returns ErrAccountLocked without the
// password being checked, as does the failure that triggers the lock.
func (e *Engine) Authenticate(ctx context.Context, email, plain string) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { e.metricObserve(MetricAuthenticateLatency, time.Since(start)) }()

	res := flows.RunAuthenticate(ctx, strings.TrimSpace(email), plain, e.flows.Authenticate)
	switch res.Failure {
	case flows.AuthenticateOK:
	case flows.AuthenticateUnknownAccount:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, eventAuthUnknownAccount, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	case flows.AuthenticateWrongPassword:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, eventAuthWrongPassword, res.ID, ErrInvalidCredentials, attemptsMeta(res.Attempts))
		return nil, ErrInvalidCredentials
	case flows.AuthenticateLockedNow:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, eventUserLocked, res.ID, ErrAccountLocked, attemptsMeta(res.Attempts))
		return nil, ErrAccountLocked
	case flows.AuthenticateLocked:
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, eventAuthLockedOut, res.ID, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	case flows.AuthenticateDisabled:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, eventAuthDisabled, res.ID, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	default:
		return nil, unavailable(res.Err)
	}

	account := res.Account
	at := e.now().UTC()
	if err := e.accounts.UpdateLastLogin(ctx, account.ID, at); err != nil {
		e.warn("last_login_update_failed", zap.String("user_id", account.ID), zap.Error(err))
	} else {
		account.LastLoginAt = &at
	}
	e.upgradeDigest(ctx, account, plain)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, eventAuthSuccess, account.ID, nil, nil)
	return account, nil
}

// Login is Authenticate followed by IssueTokens.
func (e *Engine) Login(ctx context.Context, email, plain string) (*Account, *TokenPair, error) {
	account, err := e.Authenticate(ctx, email, plain)
	if err != nil {
		return nil, nil, err
	}
	pair, err := e.IssueTokens(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

// upgradeDigest re-hashes a password whose digest was made with weaker or
// different parameters. Failures only cost a log line; the login stands.
func (e *Engine) upgradeDigest(ctx context.Context, account *Account, plain string) {
	if !e.config.Password.UpgradeOnLogin || !e.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	updater, ok := e.accounts.(PasswordHashUpdater)
	if !ok {
		return
	}
	digest, err := e.hasher.Hash(plain)
	if err != nil {
		e.warn("password_rehash_failed", zap.String("user_id", account.ID), zap.Error(err))
		return
	}
	if err := updater.UpdatePasswordHash(ctx, account.ID, digest); err != nil {
		e.warn("password_rehash_failed", zap.String("user_id", account.ID), zap.Error(err))
		return
	}
	account.PasswordHash = digest
}

func attemptsMeta(n int) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"attempts": strconv.Itoa(n)}
	}
}
