package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
)

// AuditStore provides data access for the per-tenant audit_log tables.
// The table is insert-only at the grant layer; this store exposes no
// update or delete methods either.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// Record inserts an audit entry into the tenant's own audit table. The
// schema name and tenant ID are passed explicitly because the audit
// worker runs outside any request context.
func (s *AuditStore) Record(ctx context.Context, schemaName string, entry *models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	detailJSON, err := marshalDetail(entry.Detail)
	if err != nil {
		return err
	}

	tx, err := s.beginSchemaTx(ctx, schemaName, entry.TenantID.String())
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log (tenant_id, actor, action, resource_type, resource_id, detail, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.TenantID, entry.Actor, entry.Action, entry.ResourceType,
		entry.ResourceID, detailJSON, entry.IP, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return tx.Commit(ctx)
}

// Query returns audit entries for the tenant bound to ctx, newest first,
// plus a has-more flag.
func (s *AuditStore) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	limit := clampLimit(opts.Limit)

	where, args, nextArg := buildAuditFilter(opts)

	q := `SELECT id, tenant_id, actor, action, resource_type, resource_id, detail, ip, user_agent, created_at
		FROM audit_log` + where +
		` ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(nextArg) + ` OFFSET $` + strconv.Itoa(nextArg+1)
	args = append(args, limit+1, opts.Offset)

	tx, err := s.beginTenantTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only; rollback is the cheap way out.

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry

	for rows.Next() {
		var (
			e          models.AuditEntry
			detailJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Action, &e.ResourceType,
			&e.ResourceID, &detailJSON, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scanning audit entry: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := unmarshalSettings(detailJSON, &e.Detail); err != nil {
				return nil, false, err
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// DeletionStore provides data access for the global, schema-independent
// registry.tenant_deletions table. Insert and read only: the table has
// no UPDATE/DELETE grants, matching the store surface.
type DeletionStore struct {
	Base
}

// NewDeletionStore creates a DeletionStore.
func NewDeletionStore(base Base) *DeletionStore {
	return &DeletionStore{Base: base}
}

// Record writes the deletion audit row. This is the compliance checkpoint
// of the deprovisioning sequence: it must succeed before any destructive
// DDL runs, so failures here propagate instead of being swallowed.
func (s *DeletionStore) Record(ctx context.Context, rec *models.DeletionRecord) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	detailJSON, err := marshalDetail(rec.Detail)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.Pool.QueryRow(ctx, `
		INSERT INTO registry.tenant_deletions
			(tenant_id, tenant_name, slug, schema_name, actor, member_count, detail, partial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		rec.TenantID, rec.TenantName, rec.Slug, rec.SchemaName,
		rec.Actor, rec.MemberCount, detailJSON, rec.Partial,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting deletion record: %w", err)
	}

	return id, nil
}

// MarkPartial records that a non-critical cleanup step failed after the
// deletion record was written. It appends the failure into detail rather
// than rewriting history: the original row is immutable, so the flag
// lives on a fresh row referencing the same tenant.
func (s *DeletionStore) MarkPartial(ctx context.Context, rec *models.DeletionRecord, stepErrors map[string]any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	follow := *rec
	follow.Partial = true
	follow.Detail = map[string]any{"step_errors": stepErrors, "supersedes": rec.ID}

	_, err := s.Record(ctx, &follow)

	return err
}

// ListByTenant returns the deletion records for a tenant ID, oldest first.
func (s *DeletionStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.DeletionRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT id, tenant_id, tenant_name, slug, schema_name, actor, member_count, detail, partial, deleted_at
		FROM registry.tenant_deletions
		WHERE tenant_id = $1
		ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying deletion records: %w", err)
	}
	defer rows.Close()

	var recs []models.DeletionRecord

	for rows.Next() {
		var (
			r          models.DeletionRecord
			detailJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.TenantName, &r.Slug, &r.SchemaName,
			&r.Actor, &r.MemberCount, &detailJSON, &r.Partial, &r.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning deletion record: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := unmarshalSettings(detailJSON, &r.Detail); err != nil {
				return nil, err
			}
		}
		recs = append(recs, r)
	}

	return recs, rows.Err()
}
