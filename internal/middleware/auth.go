package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Gin context keys set by the auth middleware.
const (
	// UserIDKey holds the authenticated principal's uuid.UUID.
	UserIDKey = "user_id"
	// DefaultOrgKey holds the optional default-org slug claim.
	DefaultOrgKey = "default_org"
)

// authTimingFloor is the minimum response time for rejected auth to keep
// valid and invalid tokens indistinguishable by timing.
const authTimingFloor = 50 * time.Millisecond

// principalClaims is the accepted token shape. Tokens are minted by the
// external identity layer; this service only verifies.
type principalClaims struct {
	jwt.RegisteredClaims
	// Org is the slug of the user's default org, informational only.
	// Authorization always goes through the membership registry.
	Org string `json:"org,omitempty"`
}

// enforceTimingFloor sleeps if needed so the response takes at least
// authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// Auth returns middleware that authenticates requests via an HS256 Bearer
// token whose subject is the principal's user ID.
func Auth(secret []byte, log *logrus.Logger) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		raw := ExtractBearerToken(c)
		if raw == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		claims := &principalClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			logAuthFailure(log, c, err)
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			logAuthFailure(log, c, fmt.Errorf("non-uuid subject"))
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		c.Set(UserIDKey, userID)
		if claims.Org != "" {
			c.Set(DefaultOrgKey, claims.Org)
		}
		c.Next()
	}
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// UserID returns the authenticated principal set by Auth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// DefaultOrg returns the default-org slug claim carried by the token, or
// "" when the token had none. Informational: any use must still pass the
// membership registry.
func DefaultOrg(c *gin.Context) string {
	v, ok := c.Get(DefaultOrgKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MintToken issues a short-lived HS256 principal token. Development
// helper; production tokens come from the identity layer.
func MintToken(secret []byte, userID uuid.UUID, org string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := principalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Org: org,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(log *logrus.Logger, c *gin.Context, err error) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString("request_id"),
		"reason":     err.Error(),
	}).Warn("authentication failed")
}
