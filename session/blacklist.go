package session

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/store"
)

// AccessBlacklist holds ids of access tokens revoked before their expiry.
// Entries live exactly as long as the token would have.
type AccessBlacklist struct {
	kv  *store.Store
	now func() time.Time
}

// NewAccessBlacklist returns a blacklist using now as its clock. A nil now
// means time.Now.
func NewAccessBlacklist(kv *store.Store, now func() time.Time) *AccessBlacklist {
	if now == nil {
		now = time.Now
	}
	return &AccessBlacklist{kv: kv, now: now}
}

// Add blacklists jti until expiresAt. Already expired tokens are skipped.
func (b *AccessBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.kv.Set(ctx, internal.BlacklistKey(jti), "1", ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (b *AccessBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	in, err := b.kv.Exists(ctx, internal.BlacklistKey(jti))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return in, nil
}
