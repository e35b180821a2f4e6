// Package domain defines the canonical service interfaces shared across
// the API layer and the CLI. Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
)

// TenantService defines the tenant lifecycle operations. The actor is the
// authenticated principal; membership and role checks happen inside the
// service so handlers cannot skip them.
type TenantService interface {
	Register(ctx context.Context, actor uuid.UUID, req models.CreateTenantRequest) (*models.Tenant, error)
	Status(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error)
	UpdateSettings(ctx context.Context, actor uuid.UUID, slug string, req models.UpdateTenantRequest) (*models.Tenant, error)
	RetryProvision(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error)
	RequestDeletion(ctx context.Context, actor uuid.UUID, slug string, req models.DeleteTenantRequest) error
	// Resolve looks a tenant up by slug and verifies the principal's
	// membership. Used by the tenant-bind middleware.
	Resolve(ctx context.Context, slug string, userID uuid.UUID) (*models.Tenant, *models.Membership, error)
	// DefaultOrg resolves the principal's default organization: the
	// registry pointer first, then fallbackSlug (the token's default-org
	// claim), membership-checked either way. ErrNotMember means no
	// default could be resolved.
	DefaultOrg(ctx context.Context, userID uuid.UUID, fallbackSlug string) (*models.Tenant, error)
}

// MemberService defines membership operations. The tenant is taken from
// the request context binding, so these run strictly behind the bind
// middleware.
type MemberService interface {
	List(ctx context.Context) ([]models.Membership, error)
	Add(ctx context.Context, req models.AddMemberRequest) (*models.Membership, error)
	ChangeRole(ctx context.Context, userID uuid.UUID, req models.ChangeRoleRequest) (*models.Membership, error)
	Remove(ctx context.Context, userID uuid.UUID) error
}

// AuditService defines audit ledger reads and exports for the tenant
// bound to the request context.
type AuditService interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	Export(ctx context.Context) (string, error)
}

// MFAService defines TOTP enrollment and verification for the deletion
// second factor.
type MFAService interface {
	Enroll(ctx context.Context, userID uuid.UUID) (otpauthURL string, err error)
	Verify(ctx context.Context, userID uuid.UUID, code string) error
}
