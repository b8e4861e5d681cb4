package stores

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/schedauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestOTPIssueRespectsSendRate(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOTPStore(rdb, 60*time.Second)

	require.NoError(t, mr.Set("otp:attempts:login:a1", "3"))

	require.NoError(t, s.Issue(ctx, "login", "a1", "123456", 300*time.Second))
	assert.False(t, mr.Exists("otp:attempts:login:a1"))
	assert.Equal(t, 300*time.Second, mr.TTL("otp:login:a1"))
	assert.Equal(t, 60*time.Second, mr.TTL("otp:rate:login:a1"))

	err := s.Issue(ctx, "login", "a1", "654321", 300*time.Second)
	require.ErrorIs(t, err, ErrOTPRateLimited)
	got, _ := mr.Get("otp:login:a1")
	assert.Equal(t, "123456", got)

	mr.FastForward(61 * time.Second)
	require.NoError(t, s.Issue(ctx, "login", "a1", "654321", 300*time.Second))
}

func TestOTPConsumeSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOTPStore(rdb, 60*time.Second)

	require.NoError(t, s.Issue(ctx, "login", "a1", "123456", 300*time.Second))

	out, err := s.Consume(ctx, "login", "a1", "000000")
	require.NoError(t, err)
	assert.Equal(t, OTPMismatch, out)

	out, err = s.Consume(ctx, "login", "a1", "123456")
	require.NoError(t, err)
	assert.Equal(t, OTPMatched, out)
	assert.False(t, mr.Exists("otp:login:a1"))

	out, err = s.Consume(ctx, "login", "a1", "123456")
	require.NoError(t, err)
	assert.Equal(t, OTPMissing, out)
}

func TestOTPConsumeConcurrentSingleWinner(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOTPStore(rdb, 60*time.Second)
	require.NoError(t, s.Issue(ctx, "login", "a1", "123456", 300*time.Second))

	const n = 16
	var wg sync.WaitGroup
	results := make(chan OTPOutcome, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			out, err := s.Consume(ctx, "login", "a1", "123456")
			if err == nil {
				results <- out
			}
		}()
	}
	wg.Wait()
	close(results)

	matched := 0
	for out := range results {
		if out == OTPMatched {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
}

func TestOTPDeleteKeepsRateFlag(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOTPStore(rdb, 60*time.Second)

	require.NoError(t, s.Issue(ctx, "login", "a1", "123456", 300*time.Second))
	require.NoError(t, s.Delete(ctx, "login", "a1"))
	assert.False(t, mr.Exists("otp:login:a1"))
	assert.True(t, mr.Exists("otp:rate:login:a1"))
}

func TestOAuthStateSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOAuthStateStore(store.New(rdb), 300*time.Second)

	require.NoError(t, s.Put(ctx, "st", OAuthStateRecord{AccountID: "a1", Provider: "instagram"}))
	raw, err := mr.Get("oauth_state:st")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"a1","provider":"instagram"}`, raw)
	assert.Equal(t, 300*time.Second, mr.TTL("oauth_state:st"))

	rec, ok, err := s.Take(ctx, "st")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a1", rec.AccountID)
	assert.Equal(t, "instagram", rec.Provider)

	_, ok, err = s.Take(ctx, "st")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOAuthStateExpiredOrCorrupt(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewOAuthStateStore(store.New(rdb), 300*time.Second)

	require.NoError(t, s.Put(ctx, "old", OAuthStateRecord{AccountID: "a1", Provider: "instagram"}))
	mr.FastForward(301 * time.Second)
	_, ok, err := s.Take(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("oauth_state:bad", "{not json"))
	_, ok, err = s.Take(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("oauth_state:bad"))
}
