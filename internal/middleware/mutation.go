package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/ratelimit"
)

// MutationLimit returns middleware that rate limits mutating endpoints
// per principal through the shared redis window, so the cap holds across
// instances. The limiter failing does not take the API down: errors log
// and the request proceeds.
func MutationLimit(limiter *ratelimit.Limiter, limit int, window time.Duration, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := UserID(c); ok {
			key = userID.String()
		}

		allowed, err := limiter.Allow(c.Request.Context(), "mutation:"+key, limit, window)
		if err != nil {
			log.WithError(err).Warn("mutation rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many mutations, slow down")
			return
		}

		c.Next()
	}
}
