// Package models defines the domain types and sentinel errors shared by
// the store, service, and API layers.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant lifecycle statuses. Legal transitions:
// pending → provisioning → ready | failed; failed → provisioning (retry);
// ready → deleting → row removed. Nothing skips provisioning, and failed
// never becomes ready without a re-provisioning run.
const (
	TenantPending      = "pending"
	TenantProvisioning = "provisioning"
	TenantReady        = "ready"
	TenantFailed       = "failed"
	TenantDeleting     = "deleting"
)

// legalTransitions maps a status to the statuses it may move to.
var legalTransitions = map[string][]string{
	TenantPending:      {TenantProvisioning},
	TenantProvisioning: {TenantReady, TenantFailed},
	TenantFailed:       {TenantProvisioning},
	TenantReady:        {TenantDeleting},
	TenantDeleting:     {},
}

// ValidTransition reports whether a tenant may move from one status to another.
func ValidTransition(from, to string) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// Tenant is one row in the shared registry. SchemaName is always derived
// from Slug by ident.SchemaName and is never accepted as input.
type Tenant struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	SchemaName    string         `json:"schema_name"`
	Status        string         `json:"status"`
	RetentionDays int            `json:"retention_days"`
	Settings      map[string]any `json:"settings,omitempty"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Provisionable reports whether a provisioning run may start for the tenant.
func (t *Tenant) Provisionable() bool {
	return t.Status == TenantPending || t.Status == TenantFailed
}

// maxTenantNameLen bounds display names in the registry.
const maxTenantNameLen = 100

// defaultRetentionDays is applied when a creation request leaves retention unset.
const defaultRetentionDays = 365

// CreateTenantRequest is the payload for the tenant-creation entry point.
type CreateTenantRequest struct {
	Name          string         `json:"name"`
	RetentionDays int            `json:"retention_days"`
	Settings      map[string]any `json:"settings"`
}

// Validate checks the creation payload and applies defaults.
func (r *CreateTenantRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrMissingName
	}

	if len(r.Name) > maxTenantNameLen {
		return ErrFieldTooLong("name", maxTenantNameLen)
	}

	if r.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}

	if r.RetentionDays == 0 {
		r.RetentionDays = defaultRetentionDays
	}

	return nil
}

// UpdateTenantRequest is a partial settings update. Nil fields are left
// untouched. A slug change re-runs uniqueness checking in the registry.
type UpdateTenantRequest struct {
	Name          *string        `json:"name"`
	Slug          *string        `json:"slug"`
	RetentionDays *int           `json:"retention_days"`
	Settings      map[string]any `json:"settings"`
}

// Validate checks whichever fields the update carries.
func (r *UpdateTenantRequest) Validate() error {
	if r.Name == nil && r.Slug == nil && r.RetentionDays == nil && r.Settings == nil {
		return fmt.Errorf("update carries no fields")
	}

	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
		if *r.Name == "" {
			return ErrMissingName
		}
		if len(*r.Name) > maxTenantNameLen {
			return ErrFieldTooLong("name", maxTenantNameLen)
		}
	}

	if r.RetentionDays != nil && *r.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be positive")
	}

	return nil
}

// DeleteTenantRequest carries the re-authentication factor for the
// irreversible deletion path.
type DeleteTenantRequest struct {
	// Confirm must equal the tenant slug, typed back by the operator.
	Confirm string `json:"confirm"`
	// TOTPCode is the second factor verified against the acting user's
	// enrolled secret.
	TOTPCode string `json:"totp_code"`
}

// Validate checks the deletion payload shape (factor verification happens
// in the service layer).
func (r *DeleteTenantRequest) Validate() error {
	if r.Confirm == "" {
		return fmt.Errorf("confirm is required")
	}

	if len(r.TOTPCode) != 6 {
		return fmt.Errorf("totp_code must be 6 digits")
	}

	return nil
}
