package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/schemafence/schemafence/internal/models"
)

const memberColumns = `id, tenant_id, user_id, role, status, invited_by, joined_at, removed_at`

// MemberStore provides data access for registry.tenant_members and the
// per-user default-tenant pointers.
//
// The last-owner invariant is enforced here, inside the same transaction
// as the mutation: the member rows are locked with FOR UPDATE before the
// elevated-member count is taken, so two concurrent demote/remove requests
// cannot both pass the precondition.
type MemberStore struct {
	Base
}

// NewMemberStore creates a MemberStore.
func NewMemberStore(base Base) *MemberStore {
	return &MemberStore{Base: base}
}

// Add creates an active membership. Re-adding a previously removed user
// revives the old row, preserving its history.
func (s *MemberStore) Add(ctx context.Context, tenantID, userID uuid.UUID, role string, invitedBy *uuid.UUID) (*models.Membership, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	// Revive a removed row if one exists for this pair.
	row := tx.QueryRow(ctx, `
		UPDATE registry.tenant_members
		SET role = $3, status = 'active', invited_by = $4, joined_at = now(), removed_at = NULL
		WHERE tenant_id = $1 AND user_id = $2 AND status = 'removed'
		RETURNING `+memberColumns,
		tenantID, userID, role, invitedBy,
	)

	m, err := scanMember(row)
	if errors.Is(err, models.ErrMemberNotFound) {
		m, err = scanMember(tx.QueryRow(ctx, `
			INSERT INTO registry.tenant_members (tenant_id, user_id, role, invited_by)
			VALUES ($1, $2, $3, $4)
			RETURNING `+memberColumns,
			tenantID, userID, role, invitedBy,
		))
	}

	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrMemberExists
		}

		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// Get returns the active membership for a user in a tenant.
func (s *MemberStore) Get(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM registry.tenant_members
		WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'`,
		tenantID, userID,
	)

	return scanMember(row)
}

// List returns the tenant's memberships, active first, newest within each
// status.
func (s *MemberStore) List(ctx context.Context, tenantID uuid.UUID, includeRemoved bool) ([]models.Membership, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + memberColumns + ` FROM registry.tenant_members WHERE tenant_id = $1`
	if !includeRemoved {
		q += ` AND status = 'active'`
	}
	q += ` ORDER BY status, joined_at DESC`

	rows, err := s.Pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []models.Membership

	for rows.Next() {
		m, err := scanMemberRows(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}

	return members, rows.Err()
}

// Remove soft-deletes a membership, rejecting the mutation atomically if
// it would leave the tenant without an active owner or admin.
func (s *MemberStore) Remove(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	return s.mutateGuarded(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) (*models.Membership, error) {
		return scanMember(tx.QueryRow(ctx, `
			UPDATE registry.tenant_members
			SET status = 'removed', removed_at = now()
			WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'
			RETURNING `+memberColumns,
			tenantID, userID,
		))
	})
}

// ChangeRole updates a member's role, subject to the same last-owner guard
// when the change demotes an elevated member.
func (s *MemberStore) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role string) (*models.Membership, error) {
	return s.mutateGuarded(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) (*models.Membership, error) {
		return scanMember(tx.QueryRow(ctx, `
			UPDATE registry.tenant_members
			SET role = $3
			WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'
			RETURNING `+memberColumns,
			tenantID, userID, role,
		))
	})
}

// mutateGuarded locks the tenant's member rows, applies the mutation, then
// re-checks that at least one active elevated member remains. The check
// runs after the mutation inside the transaction, so the reject rolls the
// change back atomically.
func (s *MemberStore) mutateGuarded(ctx context.Context, tenantID uuid.UUID, mutate func(context.Context, pgx.Tx) (*models.Membership, error)) (*models.Membership, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	// Serialize all guarded mutations for this tenant.
	rows, err := tx.Query(ctx, `
		SELECT id FROM registry.tenant_members
		WHERE tenant_id = $1 AND status = 'active'
		FOR UPDATE`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("locking member rows: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("locking member rows: %w", err)
	}

	m, err := mutate(ctx, tx)
	if err != nil {
		return nil, err
	}

	var elevated int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM registry.tenant_members
		WHERE tenant_id = $1 AND status = 'active' AND role IN ('owner', 'admin')`,
		tenantID,
	).Scan(&elevated); err != nil {
		return nil, fmt.Errorf("counting elevated members: %w", err)
	}

	if elevated == 0 {
		return nil, models.ErrLastOwner
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

// ActiveUserIDs returns the user IDs of all active members, for deletion
// fan-out (notification, session invalidation, default repointing).
func (s *MemberStore) ActiveUserIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT user_id FROM registry.tenant_members
		WHERE tenant_id = $1 AND status = 'active'`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing member user IDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// RemoveAllForTenant soft-removes every active membership of a tenant
// (deprovisioning step 4).
func (s *MemberStore) RemoveAllForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `
		UPDATE registry.tenant_members
		SET status = 'removed', removed_at = now()
		WHERE tenant_id = $1 AND status = 'active'`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("removing memberships: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// SetDefaultTenant records a user's default tenant.
func (s *MemberStore) SetDefaultTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO registry.user_defaults (user_id, tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id`,
		userID, tenantID)
	if err != nil {
		return fmt.Errorf("setting default tenant: %w", err)
	}

	return nil
}

// RepointDefault clears or repoints a user's default-tenant pointer after
// the tenant it referenced was destroyed: if the user belongs to another
// tenant the pointer moves there, otherwise it is removed.
func (s *MemberStore) RepointDefault(ctx context.Context, userID, deletedTenantID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	var current uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT tenant_id FROM registry.user_defaults WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading default tenant: %w", err)
	}

	if current != deletedTenantID {
		return nil
	}

	var next uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT tenant_id FROM registry.tenant_members
		WHERE user_id = $1 AND status = 'active' AND tenant_id <> $2
		ORDER BY joined_at DESC
		LIMIT 1`, userID, deletedTenantID).Scan(&next)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx,
			`DELETE FROM registry.user_defaults WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clearing default tenant: %w", err)
		}
	case err != nil:
		return fmt.Errorf("finding replacement tenant: %w", err)
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE registry.user_defaults SET tenant_id = $2 WHERE user_id = $1`,
			userID, next); err != nil {
			return fmt.Errorf("repointing default tenant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetDefaultTenant returns the user's default tenant ID, or uuid.Nil when
// none is set.
func (s *MemberStore) GetDefaultTenant(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var id uuid.UUID
	err := s.Pool.QueryRow(ctx,
		`SELECT tenant_id FROM registry.user_defaults WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading default tenant: %w", err)
	}

	return id, nil
}

func scanMember(row pgx.Row) (*models.Membership, error) {
	var m models.Membership

	err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Status,
		&m.InvitedBy, &m.JoinedAt, &m.RemovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning membership: %w", err)
	}

	return &m, nil
}

func scanMemberRows(rows pgx.Rows) (*models.Membership, error) {
	var m models.Membership

	err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Status,
		&m.InvitedBy, &m.JoinedAt, &m.RemovedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning membership: %w", err)
	}

	return &m, nil
}
