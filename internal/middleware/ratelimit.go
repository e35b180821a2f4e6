// Package middleware provides the HTTP middleware chain: request IDs,
// security headers, rate limiting, metrics and authentication.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schemafence/schemafence/internal/httputil"
)

// maxTrackedIPs bounds the bucket table so an address scan cannot grow
// it without limit.
const maxTrackedIPs = 100_000

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu    sync.Mutex
	perIP map[string]*ipBucket
	rate  float64
	burst float64
}

type ipBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a RateLimiter allowing ratePerSec sustained
// requests with the given burst. A background goroutine evicts idle
// buckets until ctx is cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int) *RateLimiter {
	rl := &RateLimiter{
		perIP: make(map[string]*ipBucket),
		rate:  float64(ratePerSec),
		burst: float64(burst),
	}
	go rl.evictLoop(ctx)

	return rl
}

// take spends one token for ip, refilling by elapsed time first. A false
// return means the request must be rejected, either over-rate or because
// the bucket table is full.
func (rl *RateLimiter) take(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.perIP[ip]
	if !ok {
		if len(rl.perIP) >= maxTrackedIPs {
			return false
		}
		b = &ipBucket{tokens: rl.burst, seen: now}
		rl.perIP[ip] = b
	} else {
		b.tokens += now.Sub(b.seen).Seconds() * rl.rate
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.seen = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--

	return true
}

func (rl *RateLimiter) evictLoop(ctx context.Context) {
	const (
		sweepEvery = 5 * time.Minute
		idleAfter  = 10 * time.Minute
	)

	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.perIP {
				if now.Sub(b.seen) > idleAfter {
					delete(rl.perIP, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Handler returns gin middleware enforcing the limit per client IP.
// ClientIP is spoof-safe here because the router disables trusted
// proxies.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.take(c.ClientIP(), time.Now()) {
			httputil.RespondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Next()
	}
}
