package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
)

// MemberHandler serves membership endpoints. All routes run behind the
// tenant-bind middleware, so the target tenant comes from the request
// context rather than from handler parameters.
type MemberHandler struct {
	members domain.MemberService
	log     *logrus.Logger
}

// NewMemberHandler creates a MemberHandler with the given service and logger.
func NewMemberHandler(members domain.MemberService, log *logrus.Logger) *MemberHandler {
	return &MemberHandler{members: members, log: log}
}

// List handles GET /api/v1/orgs/:slug/members.
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err, "member.list")

		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Add handles POST /api/v1/orgs/:slug/members.
func (h *MemberHandler) Add(c *gin.Context) {
	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	member, err := h.members.Add(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, err, "member.add")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "member.add", "user_id": member.UserID, "role": member.Role}).Info("audit")

	c.JSON(http.StatusCreated, member)
}

// ChangeRole handles PATCH /api/v1/orgs/:slug/members/:user_id.
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "user_id must be a UUID")

		return
	}

	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	member, err := h.members.ChangeRole(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, h.log, err, "member.change_role")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "member.change_role", "user_id": userID, "role": member.Role}).Info("audit")

	c.JSON(http.StatusOK, member)
}

// Remove handles DELETE /api/v1/orgs/:slug/members/:user_id.
func (h *MemberHandler) Remove(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "user_id must be a UUID")

		return
	}

	if err := h.members.Remove(c.Request.Context(), userID); err != nil {
		respondServiceError(c, h.log, err, "member.remove")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "member.remove", "user_id": userID}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
