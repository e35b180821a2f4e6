package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/middleware"
)

// MFAHandler serves TOTP enrollment for the deletion second factor.
type MFAHandler struct {
	mfa domain.MFAService
	log *logrus.Logger
}

// NewMFAHandler creates an MFAHandler with the given service and logger.
func NewMFAHandler(mfa domain.MFAService, log *logrus.Logger) *MFAHandler {
	return &MFAHandler{mfa: mfa, log: log}
}

// Enroll handles POST /api/v1/mfa/enroll. Re-enrolling replaces the
// previous secret; the otpauth URL is returned exactly once.
func (h *MFAHandler) Enroll(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")

		return
	}

	url, err := h.mfa.Enroll(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.log, err, "mfa.enroll")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "mfa.enroll", "user_id": userID}).Info("audit")

	c.JSON(http.StatusCreated, gin.H{"otpauth_url": url})
}
