package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action vocabulary, fixed as {resource}.{verb}. Forensic queries
// key on these strings: new actions are additive, existing ones are never
// renamed.
const (
	ActionOrgCreated           = "org.created"
	ActionOrgUpdated           = "org.updated"
	ActionOrgProvisioned       = "org.provisioned"
	ActionOrgDeletionRequested = "org.deletion_requested"
	ActionOrgDeleted           = "org.deleted"
	ActionMemberAdded          = "member.added"
	ActionMemberRemoved        = "member.removed"
	ActionMemberRoleChanged    = "member.role_changed"
	ActionExportRequested      = "export.requested"
)

// AuditEntry is one insert-only row in a tenant's audit_log table.
// No application role ever holds UPDATE or DELETE on that table.
type AuditEntry struct {
	ID           int64          `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	Actor        uuid.UUID      `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Detail       map[string]any `json:"detail,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOpts filters a tenant audit query.
type AuditQueryOpts struct {
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	Since        time.Time
	Limit        int
	Offset       int
}

// DeletionRecord is the global, schema-independent proof that a tenant was
// destroyed. It is written before the schema drop and survives it.
type DeletionRecord struct {
	ID          int64          `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	TenantName  string         `json:"tenant_name"`
	Slug        string         `json:"slug"`
	SchemaName  string         `json:"schema_name"`
	Actor       uuid.UUID      `json:"actor"`
	MemberCount int            `json:"member_count"`
	Detail      map[string]any `json:"detail,omitempty"`
	// Partial marks deletions where a non-critical cleanup step failed;
	// the schema drop itself still completed.
	Partial   bool      `json:"partial"`
	DeletedAt time.Time `json:"deleted_at"`
}
