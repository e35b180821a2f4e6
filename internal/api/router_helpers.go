package api

import (
	"context"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/middleware"
	"github.com/schemafence/schemafence/internal/ws"
)

// membershipValidator adapts the tenant service to the WebSocket client's
// periodic re-check. Any resolution failure closes the connection.
type membershipValidator struct {
	tenants domain.TenantService
}

func (v *membershipValidator) ValidateMembership(ctx context.Context, slug string, userID uuid.UUID) error {
	_, _, err := v.tenants.Resolve(ctx, slug, userID)

	return err
}

// wsHandler upgrades GET /api/v1/orgs/:slug/events to a WebSocket that
// streams the tenant's lifecycle events. Membership is checked on connect
// and periodically after; any lifecycle state may subscribe, so members
// can watch provisioning progress.
func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, tenants domain.TenantService) gin.HandlerFunc {
	validator := &membershipValidator{tenants: tenants}

	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			respondError(c, 401, ErrCodeUnauthorized, "authentication required")

			return
		}

		slug := c.Param("slug")
		tenant, _, err := tenants.Resolve(c.Request.Context(), slug, userID)
		if err != nil {
			respondError(c, 404, ErrCodeNotFound, "not found")

			return
		}

		// CORS origins are reused as WebSocket origin patterns. The config
		// validator ensures these are safe host patterns (no wildcards etc.).
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn, validator, tenant.ID.String(), slug, userID)
		hub.Register(client)

		// Derive a context that cancels when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if slug := c.Param("slug"); slug != "" {
			fields["slug"] = slug
		}
		log.WithFields(fields).Info("request")
	}
}

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 1000

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}
