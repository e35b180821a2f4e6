package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles, highest privilege first.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Membership statuses. Rows are never hard-deleted; removal is a status
// flip so history survives for audit and re-invitation.
const (
	MemberActive  = "active"
	MemberRemoved = "removed"
)

// ValidRole reports whether r is one of the fixed membership roles.
func ValidRole(r string) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}

	return false
}

// Elevated reports whether a role may perform tenant administration
// (settings change, membership mutation, deletion, export).
func Elevated(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// Membership joins a user identity to a tenant with a role.
type Membership struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// AddMemberRequest is the payload for adding a member to a tenant.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// Validate checks the add-member payload.
func (r *AddMemberRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	if !ValidRole(r.Role) {
		return ErrInvalidRole
	}

	return nil
}

// ChangeRoleRequest is the payload for a member role change.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// Validate checks the role-change payload.
func (r *ChangeRoleRequest) Validate() error {
	if !ValidRole(r.Role) {
		return ErrInvalidRole
	}

	return nil
}
