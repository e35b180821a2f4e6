package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/middleware"
	"github.com/schemafence/schemafence/internal/models"
)

// OrgHandler serves organization lifecycle endpoints. Membership and role
// checks live in the service; the handler only shapes HTTP.
type OrgHandler struct {
	tenants domain.TenantService
	log     *logrus.Logger
}

// NewOrgHandler creates an OrgHandler with the given service and logger.
func NewOrgHandler(tenants domain.TenantService, log *logrus.Logger) *OrgHandler {
	return &OrgHandler{tenants: tenants, log: log}
}

// Create handles POST /api/v1/orgs. Provisioning is asynchronous, so a
// successful registration returns 202 with the tenant in pending state.
func (h *OrgHandler) Create(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	var req models.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	tenant, err := h.tenants.Register(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "org.create")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "org.create", "slug": tenant.Slug, "actor": actor}).Info("audit")

	c.JSON(http.StatusAccepted, tenant)
}

// Get handles GET /api/v1/orgs/:slug. Unlike the bound routes it serves
// tenants in any lifecycle state, so members can watch provisioning.
func (h *OrgHandler) Get(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	tenant, err := h.tenants.Status(c.Request.Context(), actor, c.Param("slug"))
	if err != nil {
		respondServiceError(c, h.log, err, "org.get")

		return
	}

	c.JSON(http.StatusOK, tenant)
}

// Me handles GET /api/v1/me: the principal's identity and default org.
// default_org is null when neither the registry pointer nor the token's
// default-org claim resolves to an active membership.
func (h *OrgHandler) Me(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	resp := gin.H{"user_id": actor, "default_org": nil}

	tenant, err := h.tenants.DefaultOrg(c.Request.Context(), actor, middleware.DefaultOrg(c))
	switch {
	case err == nil:
		resp["default_org"] = tenant
	case errors.Is(err, models.ErrNotMember):
		// No resolvable default; the field stays null.
	default:
		respondServiceError(c, h.log, err, "org.me")

		return
	}

	c.JSON(http.StatusOK, resp)
}

// Update handles PATCH /api/v1/orgs/:slug.
func (h *OrgHandler) Update(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	var req models.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	tenant, err := h.tenants.UpdateSettings(c.Request.Context(), actor, c.Param("slug"), req)
	if err != nil {
		respondServiceError(c, h.log, err, "org.update")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "org.update", "slug": tenant.Slug, "actor": actor}).Info("audit")

	c.JSON(http.StatusOK, tenant)
}

// Retry handles POST /api/v1/orgs/:slug/provision, re-queueing a failed
// or stuck-pending tenant for provisioning.
func (h *OrgHandler) Retry(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	tenant, err := h.tenants.RetryProvision(c.Request.Context(), actor, c.Param("slug"))
	if err != nil {
		respondServiceError(c, h.log, err, "org.provision_retry")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "org.provision_retry", "slug": tenant.Slug, "actor": actor}).Info("audit")

	c.JSON(http.StatusAccepted, tenant)
}

// Delete handles DELETE /api/v1/orgs/:slug. The request must carry the
// typed-back slug and a fresh TOTP code; teardown itself is asynchronous.
func (h *OrgHandler) Delete(c *gin.Context) {
	actor, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	var req models.DeleteTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	if err := h.tenants.RequestDeletion(c.Request.Context(), actor, c.Param("slug"), req); err != nil {
		respondServiceError(c, h.log, err, "org.delete")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "org.delete", "slug": c.Param("slug"), "actor": actor}).Info("audit")

	c.JSON(http.StatusAccepted, gin.H{"status": models.TenantDeleting})
}
