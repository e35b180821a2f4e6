package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
)

// AuditHandler serves the tenant audit ledger. Runs behind the tenant-bind
// middleware.
type AuditHandler struct {
	audit domain.AuditService
	log   *logrus.Logger
}

// NewAuditHandler creates an AuditHandler with the given service and logger.
func NewAuditHandler(audit domain.AuditService, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// Query handles GET /api/v1/orgs/:slug/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	// The actor column is uuid-typed; reject bad input here rather than
	// letting the database surface a type error as a 500.
	actor := c.Query("actor")
	if actor != "" {
		if _, err := uuid.Parse(actor); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "actor must be a UUID")

			return
		}
	}

	opts := models.AuditQueryOpts{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Actor:        actor,
		Limit:        parseInt(c.DefaultQuery("limit", "50"), 50),
		Offset:       parseOffset(c.DefaultQuery("offset", "0")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "since must be RFC 3339")

			return
		}
		opts.Since = t
	}

	entries, hasMore, err := h.audit.Query(c.Request.Context(), opts)
	if err != nil {
		respondServiceError(c, h.log, err, "audit.query")

		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "has_more": hasMore})
}

// Export handles POST /api/v1/orgs/:slug/export. The export is written to
// artifact storage and the response names the artifact.
func (h *AuditHandler) Export(c *gin.Context) {
	name, err := h.audit.Export(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err, "audit.export")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "audit.export", "artifact": name}).Info("audit")

	c.JSON(http.StatusAccepted, gin.H{"artifact": name})
}
