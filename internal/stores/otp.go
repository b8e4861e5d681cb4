package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrOTPRateLimited is returned by Issue while the send-rate flag exists.
	ErrOTPRateLimited = errors.New("otp send rate limited")
	// ErrOTPUnavailable wraps backend failures.
	ErrOTPUnavailable = errors.New("otp backend unavailable")
)

// issueScript claims the send-rate flag with SET NX and, only if the claim
// succeeds, stores the code and clears stale attempts.
const issueScript = `
if not redis.call("SET", KEYS[1], "1", "NX", "PX", ARGV[3]) then
  return 0
end
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
redis.call("DEL", KEYS[3])
return 1
`

// consumeScript deletes the code and attempt counter only while the stored
// code still equals the value the caller already matched, so two concurrent
// correct submissions cannot both win.
const consumeScript = `
local stored = redis.call("GET", KEYS[1])
if not stored or stored ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1], KEYS[2])
return 1
`

var (
	issueLua   = redis.NewScript(issueScript)
	consumeLua = redis.NewScript(consumeScript)
)

// OTPOutcome classifies a verification attempt.
type OTPOutcome int

const (
	OTPMissing OTPOutcome = iota
	OTPMismatch
	OTPMatched
)

// OTPStore keeps one active code per (action, account).
type OTPStore struct {
	redis    redis.UniversalClient
	sendRate time.Duration
}

func NewOTPStore(client redis.UniversalClient, sendRate time.Duration) *OTPStore {
	return &OTPStore{redis: client, sendRate: sendRate}
}

// Issue stores code for ttl unless a code was issued for the same pair
// within the send-rate interval.
func (s *OTPStore) Issue(ctx context.Context, action, accountID, code string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("otp ttl must be positive")
	}
	res, err := issueLua.Run(
		ctx,
		s.redis,
		[]string{
			internal.OTPRateKey(action, accountID),
			internal.OTPKey(action, accountID),
			internal.OTPAttemptPrefix(action) + accountID,
		},
		code,
		ttl.Milliseconds(),
		s.sendRate.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if res == 0 {
		return ErrOTPRateLimited
	}
	return nil
}

// Consume compares submitted against the stored code in constant time and
// deletes the code on a match.
func (s *OTPStore) Consume(ctx context.Context, action, accountID, submitted string) (OTPOutcome, error) {
	key := internal.OTPKey(action, accountID)

	stored, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OTPMissing, nil
		}
		return OTPMissing, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	if !internal.ConstantTimeEqual(stored, submitted) {
		return OTPMismatch, nil
	}

	res, err := consumeLua.Run(ctx, s.redis, []string{key, internal.OTPAttemptPrefix(action) + accountID}, stored).Int64()
	if err != nil {
		return OTPMissing, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	if res == 0 {
		// Another request consumed or replaced the code first.
		return OTPMissing, nil
	}
	return OTPMatched, nil
}

// Delete removes an issued code. The send-rate flag is kept.
func (s *OTPStore) Delete(ctx context.Context, action, accountID string) error {
	if err := s.redis.Del(ctx, internal.OTPKey(action, accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	return nil
}
