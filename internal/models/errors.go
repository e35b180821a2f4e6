package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingName   = errors.New("name is required")
	ErrMissingUserID = errors.New("user_id is required")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidSlug   = errors.New("invalid slug")
)

// Sentinel errors for lookups.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrMemberNotFound = errors.New("member not found")
)

// Sentinel errors for conflicts. Each maps to its own error code at the
// API boundary so callers can distinguish the conditions.
var (
	// ErrDuplicateSlug indicates slug collision resolution was exhausted.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrLastOwner indicates a mutation would leave a tenant without an
	// active elevated member.
	ErrLastOwner = errors.New("cannot remove the last owner")
	// ErrMemberExists indicates the user already holds an active membership.
	ErrMemberExists = errors.New("member already exists")
	// ErrTenantNotReady indicates the tenant is not in the ready state.
	ErrTenantNotReady = errors.New("tenant is not ready")
	// ErrTenantDeleting indicates a mutation raced an in-flight deletion.
	ErrTenantDeleting = errors.New("tenant deletion in progress")
	// ErrIllegalTransition indicates a lifecycle transition the state
	// machine forbids (e.g. failed → ready without re-provisioning).
	ErrIllegalTransition = errors.New("illegal status transition")
)

// Sentinel errors for authorization.
var (
	// ErrNotMember indicates the principal holds no active membership in
	// the tenant. Responses built on it must not reveal whether the
	// tenant exists.
	ErrNotMember = errors.New("no membership in tenant")
	// ErrInsufficientRole indicates the principal's role does not permit
	// the operation.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrSecondFactor indicates deletion re-authentication failed.
	ErrSecondFactor = errors.New("second factor verification failed")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
