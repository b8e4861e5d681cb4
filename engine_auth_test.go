package schedauth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/schedauth/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFixedID(id string) envOption {
	return func(b *Builder) { b.WithIDGenerator(func() string { return id }) }
}

func TestRegisterAuthenticateLockoutScenario(t *testing.T) {
	env := newTestEnv(t, testConfig(), withFixedID("a1"))
	ctx := context.Background()

	account, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "a1", account.ID)
	assert.True(t, account.Active)
	assert.NotEqual(t, testPassword, account.PasswordHash)

	got, err := env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	require.NotNil(t, got.LastLoginAt)

	for i := 0; i < 4; i++ {
		_, err := env.engine.Authenticate(ctx, "u@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	_, err = env.engine.Authenticate(ctx, "u@x.com", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.ErrorIs(t, err, ErrAccountLocked)

	env.mr.FastForward(300*time.Second + time.Second)
	got, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
}

func TestAuthenticateSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := env.engine.Authenticate(ctx, "u@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)

	account, err := env.accounts.FindByEmail(ctx, "u@x.com")
	require.NoError(t, err)
	status, err := env.engine.LoginAttempts(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Attempts)
	assert.False(t, status.Locked)

	// A fresh window: four more failures still do not lock.
	for i := 0; i < 4; i++ {
		_, err := env.engine.Authenticate(ctx, "u@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestRegisterConflicts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)

	_, err = env.engine.Register(ctx, "u@x.com", "other", testPassword)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.engine.Register(ctx, "v@x.com", "u", testPassword)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, env.accounts.count())
	assert.Equal(t, uint64(2), env.engine.MetricsSnapshot().Counters[MetricRegisterConflict])
}

func TestRegisterPasswordPolicy(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	cases := map[string]password.Rule{
		"Abc123":   password.RuleMinLength,
		"Abcdefgh": password.RuleDigit,
		"ABCD1234": password.RuleLowercase,
		"abcd1234": password.RuleUppercase,
	}
	for pw, rule := range cases {
		_, err := env.engine.Register(ctx, "u@x.com", "u", pw)
		require.ErrorIs(t, err, ErrPasswordPolicy, pw)
		var pe *password.PolicyError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, rule, pe.Rule)
	}
	assert.Equal(t, 0, env.accounts.count())
}

func TestRegisterRejectsPasswordBeyondHashLimit(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.Register(context.Background(), "u@x.com", "u", testPassword+strings.Repeat("x", 72))
	require.ErrorIs(t, err, ErrPasswordPolicy)
	var pe *password.PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, password.RuleMaxLength, pe.Rule)
	assert.Equal(t, 0, env.accounts.count())
}

func TestRegisterRejectsEmptyIdentity(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, err := env.engine.Register(context.Background(), " ", "u", testPassword)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAuthenticateUnknownEmailBurnsOneVerification(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)

	var dummy, real atomic.Int32
	deps := &env.engine.flows.Authenticate
	verify, verifyDummy := deps.Verify, deps.VerifyDummy
	deps.Verify = func(pw, digest string) bool {
		real.Add(1)
		return verify(pw, digest)
	}
	deps.VerifyDummy = func(pw string) {
		dummy.Add(1)
		verifyDummy(pw)
	}

	_, errUnknown := env.engine.Authenticate(ctx, "nobody@x.com", "wrong")
	_, errWrong := env.engine.Authenticate(ctx, "u@x.com", "wrong")

	assert.Equal(t, errUnknown, errWrong)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, int32(1), dummy.Load())
	assert.Equal(t, int32(1), real.Load())
}

func TestAuthenticateLockedSkipsVerification(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	env.mr.Set("la:lock:"+account.ID, "1")

	var calls atomic.Int32
	deps := &env.engine.flows.Authenticate
	verify := deps.Verify
	deps.Verify = func(pw, digest string) bool {
		calls.Add(1)
		return verify(pw, digest)
	}

	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Zero(t, calls.Load())
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	env.accounts.setActive(account.ID, false)

	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	assert.ErrorIs(t, err, ErrAccountDisabled)
	_, err = env.engine.Authenticate(ctx, "u@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateBackendUnavailable(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)

	env.mr.Close()
	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	assert.ErrorIs(t, err, ErrUnavailable)

	env.accounts.failWith = errors.New("db down")
	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAuthenticateUpgradesDigest(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	ctx := context.Background()
	account, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)

	cfg.Password.Algorithm = string(password.AlgorithmArgon2id)
	upgraded := newTestEnv(t, cfg, func(b *Builder) { b.WithAccountRepository(env.accounts) })

	_, err = upgraded.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
	digest, ok := env.accounts.rehashed[account.ID]
	require.True(t, ok)
	assert.Contains(t, digest, "$argon2id$")

	// The new digest keeps working.
	_, err = upgraded.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
}

func TestUnlockAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, _ = env.engine.Authenticate(ctx, "u@x.com", "wrong")
	}

	status, err := env.engine.LoginAttempts(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 5, status.Attempts)
	assert.InDelta(t, float64(300*time.Second), float64(status.Remaining), float64(2*time.Second))

	require.NoError(t, env.engine.UnlockAccount(ctx, account.ID))
	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
}

func TestAuthenticateAuditTrail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	_, _ = env.engine.Authenticate(ctx, "nobody@x.com", "x")
	_, _ = env.engine.Authenticate(ctx, "u@x.com", "wrong")
	_, err = env.engine.Authenticate(ctx, "u@x.com", testPassword)
	require.NoError(t, err)

	events := env.drainEvents()
	assert.Equal(t, []string{
		eventUserRegistered,
		eventAuthUnknownAccount,
		eventAuthWrongPassword,
		eventAuthSuccess,
	}, eventTypes(events))
	assert.Equal(t, "203.0.113.7", events[0].IP)
	assert.False(t, events[2].Success)
	assert.Equal(t, "invalid_credentials", events[2].Reason)
	assert.Equal(t, "1", events[2].Metadata["attempts"])
}
