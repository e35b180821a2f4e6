package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/schemafence/schemafence/internal/ident"
	"github.com/schemafence/schemafence/internal/models"
)

// maxSlugAttempts bounds the collision-suffix loop. The suffix itself is
// unbounded in principle; in practice exhausting this many means the
// database is rejecting inserts for another reason.
const maxSlugAttempts = 100

const tenantColumns = `id, name, slug, schema_name, status, retention_days, settings,
	created_by, created_at, updated_at`

// TenantStore provides data access for the registry.tenants table: the
// single source of truth for which schemas exist and their lifecycle state.
type TenantStore struct {
	Base
}

// NewTenantStore creates a TenantStore.
func NewTenantStore(base Base) *TenantStore {
	return &TenantStore{Base: base}
}

// Create registers a tenant: derives a unique slug from the display name
// (appending -1, -2, ... on case-insensitive collision), derives the
// schema name, and inserts the row with status pending.
func (s *TenantStore) Create(ctx context.Context, name string, createdBy uuid.UUID, retentionDays int, settings map[string]any) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	base, err := ident.Slugify(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSlug, err)
	}

	settingsJSON, err := marshalDetail(settings)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug := base
		if attempt > 0 {
			slug = base + "-" + strconv.Itoa(attempt)
		}

		schemaName := ident.SchemaName(slug)
		if err := ident.Validate(schemaName); err != nil {
			return nil, err
		}

		tenant, err := s.insert(ctx, name, slug, schemaName, createdBy, retentionDays, settingsJSON)
		if err == nil {
			return tenant, nil
		}

		if isUniqueViolation(err) {
			continue
		}

		return nil, fmt.Errorf("inserting tenant: %w", err)
	}

	return nil, models.ErrDuplicateSlug
}

func (s *TenantStore) insert(ctx context.Context, name, slug, schemaName string, createdBy uuid.UUID, retentionDays int, settingsJSON []byte) (*models.Tenant, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO registry.tenants (name, slug, schema_name, status, retention_days, settings, created_by)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING `+tenantColumns,
		name, slug, schemaName, retentionDays, settingsJSON, createdBy,
	)

	return scanTenant(row)
}

// GetByID looks up a tenant by its stable identifier.
func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM registry.tenants WHERE id = $1`, id)

	return scanTenant(row)
}

// GetBySlug looks up a tenant by slug, case-insensitively. This is the
// per-request hot path and rides the LOWER(slug) index.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM registry.tenants WHERE LOWER(slug) = LOWER($1)`, slug)

	return scanTenant(row)
}

// UpdateStatus performs an atomic lifecycle transition. The row lock
// serializes concurrent provisioning attempts so a status never regresses
// or double-applies; illegal transitions fail with ErrIllegalTransition.
// lastError is recorded alongside a move to failed and cleared otherwise.
func (s *TenantStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, lastError string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM registry.tenants WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrTenantNotFound
	}
	if err != nil {
		return fmt.Errorf("locking tenant row: %w", err)
	}

	if !models.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s → %s", models.ErrIllegalTransition, current, status)
	}

	var errCol any
	if status == models.TenantFailed && lastError != "" {
		errCol = lastError
	}

	if _, err := tx.Exec(ctx, `
		UPDATE registry.tenants
		SET status = $2, last_error = $3, updated_at = now()
		WHERE id = $1`, id, status, errCol); err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateSettings applies a partial settings update. A slug change re-runs
// uniqueness checking but never re-derives the schema name: the schema
// keeps its original name and only the routing slug changes, so existing
// DDL artifacts stay untouched.
func (s *TenantStore) UpdateSettings(ctx context.Context, id uuid.UUID, req models.UpdateTenantRequest) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	current, err := scanTenant(tx.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM registry.tenants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	if current.Status == models.TenantDeleting {
		return nil, models.ErrTenantDeleting
	}

	name := current.Name
	if req.Name != nil {
		name = *req.Name
	}

	slug := current.Slug
	if req.Slug != nil {
		if !ident.ValidSlug(*req.Slug) {
			return nil, models.ErrInvalidSlug
		}
		slug = *req.Slug
	}

	retention := current.RetentionDays
	if req.RetentionDays != nil {
		retention = *req.RetentionDays
	}

	settings := current.Settings
	if req.Settings != nil {
		settings = req.Settings
	}

	settingsJSON, err := marshalDetail(settings)
	if err != nil {
		return nil, err
	}

	updated, err := scanTenant(tx.QueryRow(ctx, `
		UPDATE registry.tenants
		SET name = $2, slug = $3, retention_days = $4, settings = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, name, slug, retention, settingsJSON,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateSlug
		}

		return nil, fmt.Errorf("updating tenant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteRow removes the tenant's registry row. Only the deprovisioner
// calls this, after the deletion audit record exists and the schema is
// gone.
func (s *TenantStore) DeleteRow(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `DELETE FROM registry.tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tenant row: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrTenantNotFound
	}

	return nil
}

// CountByStatus returns tenant counts per lifecycle status, for metrics.
func (s *TenantStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT status, COUNT(*) FROM registry.tenants GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting tenants: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning tenant count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// scanTenant scans one registry row, mapping pgx.ErrNoRows to the domain
// sentinel.
func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var (
		t            models.Tenant
		settingsJSON []byte
	)

	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.SchemaName, &t.Status,
		&t.RetentionDays, &settingsJSON, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}

	if len(settingsJSON) > 0 {
		if err := unmarshalSettings(settingsJSON, &t.Settings); err != nil {
			return nil, err
		}
	}

	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
