package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/schemafence/schemafence/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(rl *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hitFrom(r *gin.Engine, addr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.RemoteAddr = addr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limitedRouter(middleware.NewRateLimiter(ctx, 1, 2))

	for i := 0; i < 2; i++ {
		if code := hitFrom(r, "1.2.3.4:1234"); code != http.StatusOK {
			t.Fatalf("request %d within burst: status %d", i, code)
		}
	}
	if code := hitFrom(r, "1.2.3.4:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("request past burst: status %d, want 429", code)
	}
}

func TestRateLimiter_BucketsPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limitedRouter(middleware.NewRateLimiter(ctx, 1, 1))

	if code := hitFrom(r, "1.1.1.1:1000"); code != http.StatusOK {
		t.Fatalf("first IP: status %d", code)
	}
	// The first IP's spent token must not affect the second IP.
	if code := hitFrom(r, "2.2.2.2:1000"); code != http.StatusOK {
		t.Fatalf("second IP: status %d", code)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rate high enough that the time between sequential requests refills
	// a full token.
	r := limitedRouter(middleware.NewRateLimiter(ctx, 1_000_000, 2))

	for i := 0; i < 2; i++ {
		hitFrom(r, "5.5.5.5:1000")
	}
	if code := hitFrom(r, "5.5.5.5:1000"); code != http.StatusOK {
		t.Fatalf("after refill: status %d, want 200", code)
	}
}
