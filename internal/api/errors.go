package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/httputil"
	"github.com/schemafence/schemafence/internal/metrics"
	"github.com/schemafence/schemafence/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
	ErrCodeDuplicateSlug   = "duplicate_slug"
	ErrCodeLastOwner       = "last_owner"
	ErrCodeTenantNotReady  = "tenant_not_ready"
	ErrCodeSecondFactor    = "second_factor_failed"
	ErrCodeConflict        = "conflict"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps the service layer's sentinel errors onto HTTP
// responses. Unknown errors become an opaque 500; membership failures
// deliberately render as 404 so slug probing learns nothing.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, action string) {
	switch {
	case errors.Is(err, models.ErrNotMember), errors.Is(err, models.ErrMemberNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, models.ErrInsufficientRole):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, "insufficient role")
	case errors.Is(err, models.ErrSecondFactor):
		respondError(c, http.StatusForbidden, ErrCodeSecondFactor, "re-authentication failed")
	case errors.Is(err, models.ErrDuplicateSlug):
		respondError(c, http.StatusConflict, ErrCodeDuplicateSlug, "organization name is taken")
	case errors.Is(err, models.ErrLastOwner):
		respondError(c, http.StatusConflict, ErrCodeLastOwner, "cannot remove the last owner")
	case errors.Is(err, models.ErrMemberExists):
		respondError(c, http.StatusConflict, ErrCodeConflict, "user is already a member")
	case errors.Is(err, models.ErrTenantNotReady):
		respondError(c, http.StatusConflict, ErrCodeTenantNotReady, "organization is not ready")
	case errors.Is(err, models.ErrTenantDeleting), errors.Is(err, models.ErrIllegalTransition):
		respondError(c, http.StatusConflict, ErrCodeConflict, "organization state does not allow this operation")
	default:
		log.WithError(err).WithField("action", action).Error("request failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
