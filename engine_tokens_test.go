package schedauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/schedauth/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginTestAccount(t *testing.T, env *testEnv) (*Account, *TokenPair) {
	t.Helper()
	ctx := context.Background()
	_, err := env.engine.Register(ctx, "u@x.com", "u", testPassword)
	require.NoError(t, err)
	account, pair, err := env.engine.Login(ctx, "u@x.com", testPassword)
	require.NoError(t, err)
	return account, pair
}

func TestIssueTokensRoundTrip(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, pair := loginTestAccount(t, env)

	claims, err := env.engine.tokens.Decode(pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Subject)
	assert.Equal(t, jwt.KindAccess, claims.Kind)
	assert.Equal(t, pair.Access.ID, claims.ID)
	assert.True(t, claims.Expiry().After(time.Now()))

	owner, err := env.mr.Get("rt:" + pair.Refresh.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, owner)
	members, err := env.mr.Members("rts:" + account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{pair.Refresh.ID}, members)
	assert.InDelta(t, float64(30*24*time.Hour), float64(env.mr.TTL("rt:"+pair.Refresh.ID)), float64(5*time.Second))
}

func TestAccessTokenFailsAfterExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	env := newTestEnv(t, testConfig(), func(b *Builder) { b.WithClock(clock) })
	_, pair := loginTestAccount(t, env)

	_, err := env.engine.ValidateAccess(context.Background(), pair.Access.Token)
	require.NoError(t, err)

	mu.Lock()
	now = pair.Access.ExpiresAt.Add(time.Second)
	mu.Unlock()
	_, err = env.engine.ValidateAccess(context.Background(), pair.Access.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshRotatesOnce(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, pair := loginTestAccount(t, env)

	next, err := env.engine.Refresh(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh.ID, next.Refresh.ID)
	assert.False(t, env.mr.Exists("rt:"+pair.Refresh.ID))
	assert.True(t, env.mr.Exists("rt:"+next.Refresh.ID))

	claims, err := env.engine.ValidateAccess(ctx, next.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Subject)

	_, err = env.engine.Refresh(ctx, pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = env.engine.Refresh(ctx, next.Refresh.Token)
	assert.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, pair := loginTestAccount(t, env)

	_, err := env.engine.Refresh(context.Background(), pair.Access.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = env.engine.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = env.engine.ValidateAccess(context.Background(), pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, pair := loginTestAccount(t, env)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Refresh(context.Background(), pair.Refresh.Token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success, revoked := 0, 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRevoked):
			revoked++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, revoked)
}

func TestLogoutRevokesAndBlacklists(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, pair := loginTestAccount(t, env)

	env.engine.Logout(ctx, LogoutRequest{AccessToken: pair.Access.Token, RefreshToken: pair.Refresh.Token})

	_, err := env.engine.Refresh(ctx, pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrRevoked)
	_, err = env.engine.ValidateAccess(ctx, pair.Access.Token)
	assert.ErrorIs(t, err, ErrRevoked)

	ttl := env.mr.TTL("bl:" + pair.Access.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 15*time.Minute)

	env.mr.FastForward(ttl + time.Second)
	assert.False(t, env.mr.Exists("bl:"+pair.Access.ID))
}

func TestLogoutNeverFails(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, pair := loginTestAccount(t, env)

	env.engine.Logout(ctx, LogoutRequest{})
	env.engine.Logout(ctx, LogoutRequest{AccessToken: "junk", RefreshToken: "junk"})
	// Swapped kinds are ignored rather than acted on.
	env.engine.Logout(ctx, LogoutRequest{AccessToken: pair.Refresh.Token, RefreshToken: pair.Access.Token})

	_, err := env.engine.Refresh(ctx, pair.Refresh.Token)
	require.NoError(t, err)

	env.mr.Close()
	env.engine.Logout(ctx, LogoutRequest{AccessToken: pair.Access.Token, RevokeAll: true})
}

func TestLogoutRevokeAll(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, first := loginTestAccount(t, env)
	second, err := env.engine.IssueTokens(ctx, account)
	require.NoError(t, err)

	env.engine.Logout(ctx, LogoutRequest{AccessToken: first.Access.Token, RevokeAll: true})

	for _, tok := range []string{first.Refresh.Token, second.Refresh.Token} {
		_, err := env.engine.Refresh(ctx, tok)
		assert.ErrorIs(t, err, ErrRevoked)
	}
	assert.False(t, env.mr.Exists("rts:"+account.ID))
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricLogoutAll])
}

func TestRevokeAllSessions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, pair := loginTestAccount(t, env)

	n, err := env.engine.RevokeAllSessions(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = env.engine.Refresh(ctx, pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestCurrentAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	account, pair := loginTestAccount(t, env)

	got, err := env.engine.CurrentAccount(ctx, pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	env.accounts.setActive(account.ID, false)
	_, err = env.engine.CurrentAccount(ctx, pair.Access.Token)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshAuditAndMetrics(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, pair := loginTestAccount(t, env)

	_, err := env.engine.Refresh(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	_, err = env.engine.Refresh(ctx, pair.Refresh.Token)
	require.ErrorIs(t, err, ErrRevoked)

	snap := env.engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricRefreshSuccess])
	assert.Equal(t, uint64(1), snap.Counters[MetricRefreshRevoked])
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginSuccess])

	types := eventTypes(env.drainEvents())
	assert.Contains(t, types, eventRefreshRotated)
	assert.Contains(t, types, eventRefreshReuseRejected)
}
