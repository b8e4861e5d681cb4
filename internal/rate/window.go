package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the counter, seeds its TTL on the first hit of a
// window and sets the lock flag once the threshold is reached. Running it as
// one script keeps concurrent failures from racing past the threshold.
const hitScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local locked = 0
if n >= tonumber(ARGV[2]) then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[3])
  locked = 1
end
return {n, locked}
`

var hitLua = redis.NewScript(hitScript)

// WindowConfig parameterizes a Window. The counter key is CounterPrefix+id
// and the lock flag key is LockPrefix+id.
type WindowConfig struct {
	CounterPrefix string
	LockPrefix    string
	Threshold     int
	Window        time.Duration
	LockDuration  time.Duration
}

// Hit is the outcome of recording one failure.
type Hit struct {
	Attempts int
	Locked   bool
}

// Window is a fixed-window failure counter with a self-expiring lock flag.
// States per id are clear, accumulating and locked; every key it writes
// carries a TTL so no state outlives its window without a scheduler.
type Window struct {
	redis  redis.UniversalClient
	config WindowConfig
}

// NewWindow validates cfg and returns a Window backed by client.
func NewWindow(client redis.UniversalClient, cfg WindowConfig) (*Window, error) {
	if client == nil {
		return nil, errors.New("rate: redis client required")
	}
	if cfg.CounterPrefix == "" || cfg.LockPrefix == "" || cfg.CounterPrefix == cfg.LockPrefix {
		return nil, errors.New("rate: distinct counter and lock prefixes required")
	}
	if cfg.Threshold <= 0 {
		return nil, errors.New("rate: threshold must be > 0")
	}
	if cfg.Window < time.Millisecond || cfg.LockDuration < time.Millisecond {
		return nil, errors.New("rate: window and lock duration must be positive")
	}
	return &Window{redis: client, config: cfg}, nil
}

// Config returns the window parameters.
func (w *Window) Config() WindowConfig {
	return w.config
}

// Hit records one failure for id.
func (w *Window) Hit(ctx context.Context, id string) (Hit, error) {
	res, err := hitLua.Run(
		ctx,
		w.redis,
		[]string{w.counterKey(id), w.lockKey(id)},
		w.config.Window.Milliseconds(),
		w.config.Threshold,
		w.config.LockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Hit{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Hit{}, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}
	return Hit{Attempts: int(res[0]), Locked: res[1] == 1}, nil
}

// Locked reports whether the lock flag for id is present.
func (w *Window) Locked(ctx context.Context, id string) (bool, error) {
	n, err := w.redis.Exists(ctx, w.lockKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Attempts returns the failures recorded in the current window. Missing
// keys read as zero.
func (w *Window) Attempts(ctx context.Context, id string) (int, error) {
	n, err := w.redis.Get(ctx, w.counterKey(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n < 0 {
		return 0, nil
	}
	return int(n), nil
}

// LockRemaining returns how long the lock flag for id will persist, or zero
// when id is not locked.
func (w *Window) LockRemaining(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := w.redis.PTTL(ctx, w.lockKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset deletes both the counter and the lock flag.
func (w *Window) Reset(ctx context.Context, id string) error {
	if err := w.redis.Del(ctx, w.counterKey(id), w.lockKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ClearAttempts deletes only the counter, leaving any active lock in place.
func (w *Window) ClearAttempts(ctx context.Context, id string) error {
	if err := w.redis.Del(ctx, w.counterKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (w *Window) counterKey(id string) string { return w.config.CounterPrefix + id }

func (w *Window) lockKey(id string) string { return w.config.LockPrefix + id }
