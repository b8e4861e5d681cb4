// Package store is the shared key-value contract the authority runs on:
// TTL-scoped get/set, set-if-absent, increment with expiry on first write,
// set membership, existence and delete.
//
// Every method maps backend failures to ErrUnavailable so callers can tell
// "the store is down" apart from "the key is absent". Multi-key atomic
// updates are not part of this surface; packages that need them run Lua
// scripts against Client directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the backend cannot be reached or replies
// with an error.
var ErrUnavailable = errors.New("state store unavailable")

// Store wraps a Redis client shared by every instance of the service.
type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Client exposes the underlying client for scripted operations.
func (s *Store) Client() redis.UniversalClient { return s.client }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Get returns the value at key. ok is false when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return v, true, nil
}

// Set stores value with ttl. A ttl of zero keeps the key until deleted.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetNX stores value only if key is absent and reports whether it did.
func (s *Store) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	err := s.client.SetArgs(ctx, key, value, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}
	return true, nil
}

// GetDel returns and removes the value at key in one step.
func (s *Store) GetDel(ctx context.Context, key string) (value string, ok bool, err error) {
	v, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return v, true, nil
}

var incrExpireLua = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// IncrWithTTL increments key and, when this call created it, sets its
// expiry to ttl. Later increments leave the expiry alone, so the window
// is fixed from the first write.
func (s *Store) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, errors.New("store: ttl must be positive")
	}
	n, err := incrExpireLua.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Del removes keys and returns how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return d, nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, key, args...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}
