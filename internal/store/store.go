// Package store provides focused, single-concern data access stores for
// the tenant isolation core.
//
// Each store owns one domain (registry, membership, tenant schemas, audit,
// deletion audit) and embeds shared helpers via the Base struct. Stores
// never import each other; shared logic lives in this file or in dedicated
// helper files (policy.go).
//
// Isolation is layered. Tenant-scoped transactions set both the schema
// search path and the app.tenant_id session variable, so RLS policies hold
// even if a query escapes the search path. Both settings are SET LOCAL:
// PostgreSQL unwinds them when the transaction ends, and the pool discards
// any connection it cannot reset on release.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/dbpool"
	"github.com/schemafence/schemafence/internal/ident"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

const defaultQueryTimeout = 30 * time.Second

// ddlTimeout bounds provisioning/deprovisioning DDL, which can be slow on
// loaded clusters.
const ddlTimeout = 2 * time.Minute

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// scopeTenant pins a transaction to one tenant: search path first, session
// variable second. The schema name is re-validated even though it came
// from the registry; validation and quoting are always paired, with no
// exempt call sites.
func scopeTenant(ctx context.Context, tx pgx.Tx, schemaName string, tenantID string) error {
	if err := ident.Validate(schemaName); err != nil {
		return fmt.Errorf("refusing to scope transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", ident.Quote(schemaName)); err != nil {
		return fmt.Errorf("setting search path: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return fmt.Errorf("setting tenant session variable: %w", err)
	}

	return nil
}

// beginTenantTx starts a transaction scoped to the tenant bound to ctx.
func (b *Base) beginTenantTx(ctx context.Context) (pgx.Tx, error) {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	return b.beginSchemaTx(ctx, t.SchemaName, t.ID.String())
}

// beginSchemaTx starts a transaction scoped to an explicit schema and
// tenant ID. Background jobs use this form; request paths go through
// beginTenantTx so the binding cannot be forged per call.
func (b *Base) beginSchemaTx(ctx context.Context, schemaName, tenantID string) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if err := scopeTenant(ctx, tx, schemaName, tenantID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// marshalDetail serializes a detail map for a jsonb column, defaulting to
// an empty object.
func marshalDetail(detail map[string]any) ([]byte, error) {
	if detail == nil {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshaling detail: %w", err)
	}

	return data, nil
}
