package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/notify"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

// Compile-time check: *MemberService must satisfy domain.MemberService.
var _ domain.MemberService = (*MemberService)(nil)

// MemberService implements membership operations for the tenant bound to
// the request context. The last-owner invariant itself lives in the store
// layer, inside the mutation transaction; this service adds the role
// guards and the audit trail.
type MemberService struct {
	members  MembershipStore
	tenants  TenantRegistry
	sessions SessionInvalidator
	notifier notify.Notifier
	audit    AuditEnqueuer
	log      *logrus.Logger
}

// NewMemberService creates a MemberService.
func NewMemberService(
	members MembershipStore,
	tenants TenantRegistry,
	sessions SessionInvalidator,
	notifier notify.Notifier,
	audit AuditEnqueuer,
	log *logrus.Logger,
) *MemberService {
	return &MemberService{
		members:  members,
		tenants:  tenants,
		sessions: sessions,
		notifier: notifier,
		audit:    audit,
		log:      log,
	}
}

// List returns the active members of the bound tenant. Any member may
// list the roster.
func (s *MemberService) List(ctx context.Context) ([]models.Membership, error) {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	return s.members.List(ctx, t.ID, false)
}

// Add adds a member to the bound tenant. Requires owner or admin; only
// owners may grant the owner role.
func (s *MemberService) Add(ctx context.Context, req models.AddMemberRequest) (*models.Membership, error) {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !models.Elevated(t.Role) {
		return nil, models.ErrInsufficientRole
	}
	if req.Role == models.RoleOwner && t.Role != models.RoleOwner {
		return nil, models.ErrInsufficientRole
	}

	invitedBy := t.UserID
	m, err := s.members.Add(ctx, t.ID, req.UserID, req.Role, &invitedBy)
	if err != nil {
		return nil, err
	}

	if tenant, err := s.tenants.GetByID(ctx, t.ID); err == nil {
		s.notifier.MemberAdded(ctx, tenant, req.UserID, req.Role)
	}

	s.enqueueAudit(t, models.ActionMemberAdded, req.UserID, map[string]any{"role": req.Role})

	return m, nil
}

// ChangeRole changes a member's role. Requires owner or admin; granting
// or revoking the owner role requires owner. Demoting the last owner or
// admin fails with ErrLastOwner.
func (s *MemberService) ChangeRole(ctx context.Context, userID uuid.UUID, req models.ChangeRoleRequest) (*models.Membership, error) {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !models.Elevated(t.Role) {
		return nil, models.ErrInsufficientRole
	}

	if t.Role != models.RoleOwner {
		current, err := s.members.Get(ctx, t.ID, userID)
		if err != nil {
			return nil, err
		}
		if req.Role == models.RoleOwner || current.Role == models.RoleOwner {
			return nil, models.ErrInsufficientRole
		}
	}

	m, err := s.members.ChangeRole(ctx, t.ID, userID, req.Role)
	if err != nil {
		return nil, err
	}

	s.enqueueAudit(t, models.ActionMemberRoleChanged, userID, map[string]any{"role": req.Role})

	return m, nil
}

// Remove removes a member from the bound tenant. Members may remove
// themselves; removing anyone else requires owner or admin. Removing the
// last owner or admin fails with ErrLastOwner even when self-initiated.
func (s *MemberService) Remove(ctx context.Context, userID uuid.UUID) error {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return err
	}

	if userID != t.UserID && !models.Elevated(t.Role) {
		return models.ErrInsufficientRole
	}

	if _, err := s.members.Remove(ctx, t.ID, userID); err != nil {
		return err
	}

	// Revoke live sessions so the removed member loses access now, not
	// at token expiry.
	if err := s.sessions.InvalidateUser(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to invalidate sessions for removed member")
	}

	if err := s.members.RepointDefault(ctx, userID, t.ID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to repoint default tenant")
	}

	s.enqueueAudit(t, models.ActionMemberRemoved, userID, nil)

	return nil
}

func (s *MemberService) enqueueAudit(t tenantctx.Tenant, action string, subject uuid.UUID, detail map[string]any) {
	s.audit.Enqueue(&AuditJob{
		TenantID:     t.ID,
		SchemaName:   t.SchemaName,
		Actor:        t.UserID,
		Action:       action,
		ResourceType: "member",
		ResourceID:   subject.String(),
		Detail:       detail,
	})
}
