package schedauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthStateSingleUse(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	state, err := env.engine.CreateOAuthState(ctx, "a1", "Instagram")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(state), 43)
	assert.Equal(t, 300*time.Second, env.mr.TTL("oauth_state:"+state))

	got, ok, err := env.engine.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OAuthState{AccountID: "a1", Provider: "instagram"}, *got)

	_, ok, err = env.engine.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOAuthStateExpires(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	state, err := env.engine.CreateOAuthState(ctx, "a1", "instagram")
	require.NoError(t, err)

	env.mr.FastForward(301 * time.Second)
	_, ok, err := env.engine.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = env.engine.ConsumeOAuthState(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), env.engine.MetricsSnapshot().Counters[MetricOAuthStateRejected])
}

func TestLinkPlatformEncryptsAndUpdates(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	p, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{
		AccountID:      "a1",
		Provider:       "instagram",
		ProviderUserID: "ig-1",
		AccessToken:    "access-1",
		RefreshToken:   "refresh-1",
		ExpiresAt:      &exp,
	})
	require.NoError(t, err)
	assert.NotContains(t, p.AccessTokenEnc, "access-1")
	assert.NotEmpty(t, p.RefreshTokenEnc)

	tokens, err := env.engine.PlatformTokens(ctx, "a1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
	assert.Equal(t, &exp, tokens.ExpiresAt)

	again, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{
		AccountID:   "a1",
		Provider:    "instagram",
		AccessToken: "access-2",
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	tokens, err = env.engine.PlatformTokens(ctx, "a1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)

	list, err := env.engine.ListPlatforms(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ig-1", list[0].ProviderUserID)
}

func TestLinkPlatformProviderIdentityConflict(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{
		AccountID: "a1", Provider: "instagram", ProviderUserID: "ig-1", AccessToken: "t",
	})
	require.NoError(t, err)

	_, err = env.engine.LinkPlatform(ctx, LinkPlatformRequest{
		AccountID: "a2", Provider: "instagram", ProviderUserID: "ig-1", AccessToken: "t",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPlatformTokensCorruptCiphertext(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{AccountID: "a1", Provider: "instagram", AccessToken: "secret"})
	require.NoError(t, err)
	env.platforms.corrupt(p.ID)

	_, err = env.engine.PlatformTokens(ctx, "a1", p.ID)
	assert.ErrorIs(t, err, ErrCipherFailure)
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricCipherFailure])
}

func TestPlatformOwnership(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{AccountID: "a1", Provider: "instagram", AccessToken: "secret"})
	require.NoError(t, err)

	_, err = env.engine.PlatformTokens(ctx, "a2", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.engine.UnlinkPlatform(ctx, "a2", p.ID), ErrNotFound)

	require.NoError(t, env.engine.UnlinkPlatform(ctx, "a1", p.ID))
	list, err := env.engine.ListPlatforms(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdatePlatformTokensAndProviderUserID(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	p, err := env.engine.LinkPlatform(ctx, LinkPlatformRequest{AccountID: "a1", Provider: "instagram", AccessToken: "old"})
	require.NoError(t, err)

	require.NoError(t, env.engine.UpdatePlatformTokens(ctx, "a1", p.ID, PlatformTokens{AccessToken: "new", RefreshToken: "r"}))
	tokens, err := env.engine.PlatformTokens(ctx, "a1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", tokens.AccessToken)
	assert.Equal(t, "r", tokens.RefreshToken)

	require.NoError(t, env.engine.SetProviderUserID(ctx, "a1", p.ID, "ig-9"))
	stored, err := env.platforms.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ig-9", stored.ProviderUserID)
}

func TestEphemeralCipherKeyReported(t *testing.T) {
	env := newTestEnv(t, testConfig())
	report := env.engine.SecurityReport()
	assert.True(t, report.EphemeralCipherKey)
	assert.Contains(t, report.Warnings, "oauth token cipher key is ephemeral")
}
