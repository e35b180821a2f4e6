// Package service provides business logic between API handlers and data
// stores: role guards, the tenant state machine, background provisioning
// and the audit pipeline.
package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
)

// TenantRegistry is the registry data access TenantService depends on.
type TenantRegistry interface {
	Create(ctx context.Context, name string, createdBy uuid.UUID, retentionDays int, settings map[string]any) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, lastError string) error
	UpdateSettings(ctx context.Context, id uuid.UUID, req models.UpdateTenantRequest) (*models.Tenant, error)
	DeleteRow(ctx context.Context, id uuid.UUID) error
}

// MembershipStore is the membership data access the services depend on.
type MembershipStore interface {
	Add(ctx context.Context, tenantID, userID uuid.UUID, role string, invitedBy *uuid.UUID) (*models.Membership, error)
	Get(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error)
	List(ctx context.Context, tenantID uuid.UUID, includeRemoved bool) ([]models.Membership, error)
	Remove(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error)
	ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role string) (*models.Membership, error)
	ActiveUserIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	RemoveAllForTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	SetDefaultTenant(ctx context.Context, userID, tenantID uuid.UUID) error
	GetDefaultTenant(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	RepointDefault(ctx context.Context, userID, deletedTenantID uuid.UUID) error
}

// SchemaManager creates and destroys tenant schemas.
type SchemaManager interface {
	Create(ctx context.Context, schemaName string) error
	Drop(ctx context.Context, schemaName string) error
	Exists(ctx context.Context, schemaName string) (bool, error)
}

// AuditRecorder writes one entry into a tenant's audit table.
type AuditRecorder interface {
	Record(ctx context.Context, schemaName string, entry *models.AuditEntry) error
}

// AuditQuerier reads the audit table of the tenant bound to ctx.
type AuditQuerier interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// DeletionLedger writes the global deletion audit rows.
type DeletionLedger interface {
	Record(ctx context.Context, rec *models.DeletionRecord) (int64, error)
	MarkPartial(ctx context.Context, rec *models.DeletionRecord, stepErrors map[string]any) error
}

// SessionInvalidator revokes a user's active sessions.
type SessionInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

// SecondFactor verifies a user's TOTP code.
type SecondFactor interface {
	Verify(ctx context.Context, userID uuid.UUID, code string) error
}

// Broadcaster pushes tenant lifecycle events to connected clients.
type Broadcaster interface {
	BroadcastEvent(eventType, tenantID string, data json.RawMessage)
}

// AuditEnqueuer accepts fire-and-forget audit jobs.
type AuditEnqueuer interface {
	Enqueue(job *AuditJob)
}

// JobEnqueuer accepts background provisioning jobs. A false return means
// the queue is full and the job was not accepted.
type JobEnqueuer interface {
	EnqueueProvision(tenantID, actor uuid.UUID) bool
	EnqueueDeprovision(tenantID, actor uuid.UUID) bool
}
