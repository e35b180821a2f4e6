// Package ratelimit implements a fixed-window counter on redis, shared
// across instances. Used for mutation endpoints where the in-process
// per-IP bucket is not enough.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// allowScript increments the window counter and sets the expiry in the
// same atomic step, so a crash between INCR and EXPIRE cannot leave an
// immortal counter.
var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Limiter answers allow/deny for keyed fixed windows.
type Limiter struct {
	rdb *redis.Client
}

// NewLimiter creates a Limiter.
func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// Allow reports whether the caller identified by key may proceed, given
// at most limit calls per window. The first call in a window opens it.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := allowScript.Run(ctx, l.rdb, []string{"ratelimit:" + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}

	return count <= int64(limit), nil
}
