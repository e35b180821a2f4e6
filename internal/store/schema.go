package store

import (
	"context"
	"fmt"

	"github.com/schemafence/schemafence/internal/ident"
)

// SchemaStore creates and destroys the physical artifacts backing a
// tenant. It is the only code in the system that executes DDL with a
// dynamically named schema, and every entry point re-validates the name
// before quoting it, even names read back from the registry.
type SchemaStore struct {
	Base
}

// NewSchemaStore creates a SchemaStore.
func NewSchemaStore(base Base) *SchemaStore {
	return &SchemaStore{Base: base}
}

// Create provisions a tenant schema and its base tables in a single
// transaction: schema shell, then per table create + ENABLE/FORCE ROW
// LEVEL SECURITY + isolation policy + grants. Any failure rolls the whole
// transaction back, so a half-created schema never survives. The DDL uses
// IF NOT EXISTS throughout, making re-provisioning after a failure a clean
// re-apply rather than an error.
func (s *SchemaStore) Create(ctx context.Context, schemaName string) error {
	if err := ident.Validate(schemaName); err != nil {
		return fmt.Errorf("refusing to provision: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ddlTimeout)
	defer cancel()

	stmts := schemaDDL(schemaName)
	for _, t := range baseTables {
		stmts = append(stmts, tenantTableDDL(schemaName, t)...)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning provisioning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provisioning DDL failed: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Drop destroys a tenant schema and everything in it. Irreversible. The
// caller must have written the deletion audit record first and must pass
// a schema name read from the registry, never caller-supplied input; the
// name is re-validated here regardless.
func (s *SchemaStore) Drop(ctx context.Context, schemaName string) error {
	if err := ident.Validate(schemaName); err != nil {
		return fmt.Errorf("refusing to drop: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ddlTimeout)
	defer cancel()

	if _, err := s.Pool.Exec(ctx, dropSchemaDDL(schemaName)); err != nil {
		return fmt.Errorf("dropping schema: %w", err)
	}

	return nil
}

// Exists reports whether the named schema is present in the catalog. Used
// by status reads to distinguish "not yet provisioned" from "failed".
func (s *SchemaStore) Exists(ctx context.Context, schemaName string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schemaName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking schema existence: %w", err)
	}

	return exists, nil
}
