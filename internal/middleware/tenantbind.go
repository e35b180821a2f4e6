package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

// TenantBind returns middleware that resolves the :slug route parameter
// to a tenant, verifies the principal's membership and binds the tenant
// into the request context. Routes behind it require the tenant to be
// ready. Non-members get the same 404 a missing tenant produces, so slug
// probing learns nothing.
func TenantBind(tenants domain.TenantService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		slug := c.Param("slug")
		tenant, membership, err := tenants.Resolve(c.Request.Context(), slug, userID)
		if err != nil {
			if errors.Is(err, models.ErrNotMember) {
				respondError(c, http.StatusNotFound, "not_found", "organization not found")
				return
			}
			log.WithError(err).WithField("slug", slug).Error("tenant resolution failed")
			respondError(c, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}

		switch tenant.Status {
		case models.TenantReady:
		case models.TenantDeleting:
			respondError(c, http.StatusConflict, "tenant_deleting", "organization is being deleted")
			return
		default:
			respondError(c, http.StatusConflict, "tenant_not_ready", "organization is not ready")
			return
		}

		ctx, err := tenantctx.Bind(c.Request.Context(), tenantctx.Tenant{
			ID:         tenant.ID,
			Slug:       tenant.Slug,
			SchemaName: tenant.SchemaName,
			Status:     tenant.Status,
			UserID:     userID,
			Role:       membership.Role,
		})
		if err != nil {
			// A second binding on one request means a routing bug, not
			// client error.
			log.WithError(err).WithField("slug", slug).Error("tenant already bound")
			respondError(c, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
