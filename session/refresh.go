package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/redis/go-redis/v9"
)

// Every script that touches the per-account set extends its expiry to cover
// the longest-lived member, so the set never outlives nor undercuts its jtis
// by more than one refresh lifetime.
const storeRefreshScript = `
local ttl = tonumber(ARGV[3])
redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
redis.call("SADD", KEYS[2], ARGV[2])
if redis.call("PTTL", KEYS[2]) < ttl then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`

const rotateRefreshScript = `
local owner = redis.call("GET", KEYS[1])
if not owner or owner ~= ARGV[1] then
  return 0
end
local ttl = tonumber(ARGV[4])
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[2])
redis.call("SET", KEYS[2], ARGV[1], "PX", ttl)
redis.call("SADD", KEYS[3], ARGV[3])
if redis.call("PTTL", KEYS[3]) < ttl then
  redis.call("PEXPIRE", KEYS[3], ttl)
end
return 1
`

const revokeRefreshScript = `
local owner = redis.call("GET", KEYS[1])
if not owner then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. owner, ARGV[2])
return 1
`

const revokeAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, jti in ipairs(members) do
  removed = removed + redis.call("DEL", ARGV[1] .. jti)
end
redis.call("DEL", KEYS[1])
return removed
`

var (
	storeRefreshLua  = redis.NewScript(storeRefreshScript)
	rotateRefreshLua = redis.NewScript(rotateRefreshScript)
	revokeRefreshLua = redis.NewScript(revokeRefreshScript)
	revokeAllLua     = redis.NewScript(revokeAllScript)
)

// RefreshAllowList records which refresh token ids are live. A refresh token
// is honoured only while its jti is present here and owned by the token's
// subject.
//
// Layout: rt:<jti> holds the account id, rts:<account> holds the account's
// live jtis.
type RefreshAllowList struct {
	redis redis.UniversalClient
}

func NewRefreshAllowList(client redis.UniversalClient) *RefreshAllowList {
	return &RefreshAllowList{redis: client}
}

// Store adds jti for accountID with the given lifetime.
func (l *RefreshAllowList) Store(ctx context.Context, accountID, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be positive")
	}
	err := storeRefreshLua.Run(
		ctx,
		l.redis,
		[]string{internal.RefreshKey(jti), internal.RefreshSetKey(accountID)},
		accountID, jti, ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Valid reports whether jti is live and owned by accountID.
func (l *RefreshAllowList) Valid(ctx context.Context, accountID, jti string) (bool, error) {
	owner, err := l.redis.Get(ctx, internal.RefreshKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return owner == accountID, nil
}

// Rotate atomically replaces oldJTI with newJTI. It returns false without
// changing anything when oldJTI is absent or belongs to another account;
// among concurrent rotations of the same jti exactly one returns true.
func (l *RefreshAllowList) Rotate(ctx context.Context, accountID, oldJTI, newJTI string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("refresh ttl must be positive")
	}
	res, err := rotateRefreshLua.Run(
		ctx,
		l.redis,
		[]string{
			internal.RefreshKey(oldJTI),
			internal.RefreshKey(newJTI),
			internal.RefreshSetKey(accountID),
		},
		accountID, oldJTI, newJTI, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// Revoke removes jti. Revoking an unknown jti is not an error.
func (l *RefreshAllowList) Revoke(ctx context.Context, jti string) (bool, error) {
	res, err := revokeRefreshLua.Run(
		ctx,
		l.redis,
		[]string{internal.RefreshKey(jti)},
		internal.RefreshSetPrefix, jti,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// RevokeAll removes every live refresh token of accountID and returns how
// many were still present.
func (l *RefreshAllowList) RevokeAll(ctx context.Context, accountID string) (int, error) {
	n, err := revokeAllLua.Run(
		ctx,
		l.redis,
		[]string{internal.RefreshSetKey(accountID)},
		internal.RefreshPrefix,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Count returns the number of jtis indexed for accountID. Entries whose
// rt: key already expired are still counted until the set is rewritten.
func (l *RefreshAllowList) Count(ctx context.Context, accountID string) (int64, error) {
	n, err := l.redis.SCard(ctx, internal.RefreshSetKey(accountID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}
