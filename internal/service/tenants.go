package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
)

// Compile-time check: *TenantService must satisfy domain.TenantService.
var _ domain.TenantService = (*TenantService)(nil)

// TenantService implements the tenant lifecycle: registration, status
// reads, settings changes and the guarded deletion entry point. The
// destructive work itself runs on the provisioner; this service only
// authorizes it and flips the state machine.
type TenantService struct {
	tenants TenantRegistry
	members MembershipStore
	schemas SchemaManager
	jobs    JobEnqueuer
	factor  SecondFactor
	audit   AuditEnqueuer
	log     *logrus.Logger
}

// NewTenantService creates a TenantService.
func NewTenantService(
	tenants TenantRegistry,
	members MembershipStore,
	schemas SchemaManager,
	jobs JobEnqueuer,
	factor SecondFactor,
	audit AuditEnqueuer,
	log *logrus.Logger,
) *TenantService {
	return &TenantService{
		tenants: tenants,
		members: members,
		schemas: schemas,
		jobs:    jobs,
		factor:  factor,
		audit:   audit,
		log:     log,
	}
}

// Register creates a tenant in status pending, makes the actor its first
// owner and hands provisioning to the background queue. The caller gets
// the pending tenant back immediately; readiness is polled via Status.
func (s *TenantService) Register(ctx context.Context, actor uuid.UUID, req models.CreateTenantRequest) (*models.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.Create(ctx, req.Name, actor, req.RetentionDays, req.Settings)
	if err != nil {
		return nil, err
	}

	if _, err := s.members.Add(ctx, tenant.ID, actor, models.RoleOwner, nil); err != nil {
		// Orphaned registry row without an owner is unusable; undo.
		if delErr := s.tenants.DeleteRow(ctx, tenant.ID); delErr != nil {
			s.log.WithError(delErr).WithField("tenant_id", tenant.ID).
				Error("failed to roll back tenant after owner insert failure")
		}
		return nil, fmt.Errorf("adding initial owner: %w", err)
	}

	if err := s.members.SetDefaultTenant(ctx, actor, tenant.ID); err != nil {
		s.log.WithError(err).WithField("tenant_id", tenant.ID).Warn("failed to set default tenant")
	}

	if !s.jobs.EnqueueProvision(tenant.ID, actor) {
		// Queue full. The tenant stays pending and can be retried.
		s.log.WithField("tenant_id", tenant.ID).Warn("provision queue full, tenant left pending")
	}

	// No audit entry here: the tenant's audit table does not exist until
	// provisioning succeeds. The provisioner writes org.created once the
	// schema is in place.

	return tenant, nil
}

// Status returns the tenant for a status poll. Membership of any role is
// enough to read status; non-members get ErrNotMember, which the API
// layer renders indistinguishably from a missing tenant.
func (s *TenantService) Status(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error) {
	tenant, _, err := s.memberOf(ctx, slug, actor)
	if err != nil {
		return nil, err
	}

	// A stored ready status with a missing schema means the schema was
	// dropped out of band. Surface it instead of reporting healthy.
	if tenant.Status == models.TenantReady {
		exists, err := s.schemas.Exists(ctx, tenant.SchemaName)
		if err != nil {
			return nil, err
		}
		if !exists {
			s.log.WithField("slug", tenant.Slug).Error("tenant marked ready but schema missing")
			if err := s.tenants.UpdateStatus(ctx, tenant.ID, models.TenantFailed, "schema missing"); err == nil {
				tenant.Status = models.TenantFailed
			}
		}
	}

	return tenant, nil
}

// UpdateSettings applies a partial settings update. Requires owner or
// admin; refused while the tenant is being deleted.
func (s *TenantService) UpdateSettings(ctx context.Context, actor uuid.UUID, slug string, req models.UpdateTenantRequest) (*models.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, membership, err := s.memberOf(ctx, slug, actor)
	if err != nil {
		return nil, err
	}

	if !models.Elevated(membership.Role) {
		return nil, models.ErrInsufficientRole
	}

	updated, err := s.tenants.UpdateSettings(ctx, tenant.ID, req)
	if err != nil {
		return nil, err
	}

	s.audit.Enqueue(&AuditJob{
		TenantID:     tenant.ID,
		SchemaName:   tenant.SchemaName,
		Actor:        actor,
		Action:       models.ActionOrgUpdated,
		ResourceType: "tenant",
		ResourceID:   tenant.ID.String(),
		Detail:       updateDetail(req),
	})

	return updated, nil
}

// RetryProvision re-queues provisioning for a tenant stuck in failed.
// Requires owner or admin.
func (s *TenantService) RetryProvision(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error) {
	tenant, membership, err := s.memberOf(ctx, slug, actor)
	if err != nil {
		return nil, err
	}

	if !models.Elevated(membership.Role) {
		return nil, models.ErrInsufficientRole
	}

	if !tenant.Provisionable() {
		return nil, models.ErrIllegalTransition
	}

	if !s.jobs.EnqueueProvision(tenant.ID, actor) {
		return nil, fmt.Errorf("provision queue full")
	}

	return tenant, nil
}

// RequestDeletion authorizes and queues the irreversible deletion of a
// tenant. Requires the owner role, the slug typed back as confirmation
// and a valid TOTP code. Success means the tenant moved to deleting and
// the deprovision job was accepted; destruction happens asynchronously.
func (s *TenantService) RequestDeletion(ctx context.Context, actor uuid.UUID, slug string, req models.DeleteTenantRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	tenant, membership, err := s.memberOf(ctx, slug, actor)
	if err != nil {
		return err
	}

	if membership.Role != models.RoleOwner {
		return models.ErrInsufficientRole
	}

	if req.Confirm != tenant.Slug {
		return fmt.Errorf("%w: confirmation does not match slug", models.ErrSecondFactor)
	}

	if err := s.factor.Verify(ctx, actor, req.TOTPCode); err != nil {
		return err
	}

	if tenant.Status != models.TenantReady {
		return models.ErrTenantNotReady
	}

	// The status flip is the commit point: the row lock inside
	// UpdateStatus makes concurrent deletion requests race to a single
	// winner, the loser sees an illegal deleting -> deleting transition.
	if err := s.tenants.UpdateStatus(ctx, tenant.ID, models.TenantDeleting, ""); err != nil {
		return err
	}

	if !s.jobs.EnqueueDeprovision(tenant.ID, actor) {
		s.log.WithField("tenant_id", tenant.ID).Error("deprovision queue full, tenant stuck in deleting")
		return fmt.Errorf("deletion queue full")
	}

	s.audit.Enqueue(&AuditJob{
		TenantID:     tenant.ID,
		SchemaName:   tenant.SchemaName,
		Actor:        actor,
		Action:       models.ActionOrgDeletionRequested,
		ResourceType: "tenant",
		ResourceID:   tenant.ID.String(),
		Detail:       map[string]any{"slug": tenant.Slug},
	})

	return nil
}

// DefaultOrg resolves the principal's default organization. The registry
// pointer wins; when it is unset or stale (tenant gone, membership
// removed) the token's default-org claim is tried instead. Both paths
// require an active membership, so a stale claim cannot leak a tenant.
func (s *TenantService) DefaultOrg(ctx context.Context, userID uuid.UUID, fallbackSlug string) (*models.Tenant, error) {
	id, err := s.members.GetDefaultTenant(ctx, userID)
	if err != nil {
		return nil, err
	}

	if id != uuid.Nil {
		tenant, err := s.tenants.GetByID(ctx, id)
		switch {
		case err == nil:
			if _, err := s.members.Get(ctx, tenant.ID, userID); err == nil {
				return tenant, nil
			} else if !errors.Is(err, models.ErrMemberNotFound) {
				return nil, err
			}
		case !errors.Is(err, models.ErrTenantNotFound):
			return nil, err
		}
		// Stale pointer; fall through to the claim.
	}

	if fallbackSlug == "" {
		return nil, models.ErrNotMember
	}

	tenant, _, err := s.memberOf(ctx, fallbackSlug, userID)
	if err != nil {
		return nil, err
	}

	return tenant, nil
}

// Resolve looks up a tenant by slug and the principal's active membership
// in it. Both "no such tenant" and "not a member" come back as
// ErrNotMember so the caller cannot enumerate tenant slugs.
func (s *TenantService) Resolve(ctx context.Context, slug string, userID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	return s.memberOf(ctx, slug, userID)
}

func (s *TenantService) memberOf(ctx context.Context, slug string, userID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	tenant, err := s.tenants.GetBySlug(ctx, slug)
	if errors.Is(err, models.ErrTenantNotFound) {
		return nil, nil, models.ErrNotMember
	}
	if err != nil {
		return nil, nil, err
	}

	membership, err := s.members.Get(ctx, tenant.ID, userID)
	if errors.Is(err, models.ErrMemberNotFound) {
		return nil, nil, models.ErrNotMember
	}
	if err != nil {
		return nil, nil, err
	}

	return tenant, membership, nil
}

// updateDetail reduces a settings update to the audit detail map without
// recording full setting values.
func updateDetail(req models.UpdateTenantRequest) map[string]any {
	detail := map[string]any{}
	if req.Name != nil {
		detail["name"] = *req.Name
	}
	if req.Slug != nil {
		detail["slug"] = *req.Slug
	}
	if req.RetentionDays != nil {
		detail["retention_days"] = *req.RetentionDays
	}
	if req.Settings != nil {
		keys := make([]string, 0, len(req.Settings))
		for k := range req.Settings {
			keys = append(keys, k)
		}
		detail["setting_keys"] = keys
	}

	return detail
}
