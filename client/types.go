package client

import "time"

// Org lifecycle statuses as reported by the API.
const (
	OrgPending      = "pending"
	OrgProvisioning = "provisioning"
	OrgReady        = "ready"
	OrgFailed       = "failed"
	OrgDeleting     = "deleting"
)

// Org is one organization (tenant) as seen through the API.
type Org struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	SchemaName    string         `json:"schema_name"`
	Status        string         `json:"status"`
	RetentionDays int            `json:"retention_days"`
	Settings      map[string]any `json:"settings,omitempty"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateOrgRequest is the payload for registering an organization.
type CreateOrgRequest struct {
	Name          string         `json:"name"`
	RetentionDays int            `json:"retention_days,omitempty"`
	Settings      map[string]any `json:"settings,omitempty"`
}

// UpdateOrgRequest is a partial organization update.
type UpdateOrgRequest struct {
	Name          *string        `json:"name,omitempty"`
	Slug          *string        `json:"slug,omitempty"`
	RetentionDays *int           `json:"retention_days,omitempty"`
	Settings      map[string]any `json:"settings,omitempty"`
}

// DeleteOrgRequest carries the re-authentication factor for deletion.
type DeleteOrgRequest struct {
	Confirm  string `json:"confirm"`
	TOTPCode string `json:"totp_code"`
}

// Member is one membership row.
type Member struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	InvitedBy *string    `json:"invited_by,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// AddMemberRequest is the payload for adding a member.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AuditEntry is one row of an organization's audit ledger.
type AuditEntry struct {
	ID           int64          `json:"id"`
	TenantID     string         `json:"tenant_id"`
	Actor        string         `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Detail       map[string]any `json:"detail,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditQueryOptions filters an audit query.
type AuditQueryOptions struct {
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	Since        *time.Time
	Limit        int
	Offset       int
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Connections   int     `json:"websocket_connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
