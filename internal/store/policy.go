package store

import (
	"fmt"

	"github.com/schemafence/schemafence/internal/ident"
)

// appRole is the minimally privileged database role the service runs as:
// NOSUPERUSER, NOBYPASSRLS, no CREATEDB/CREATEROLE. Created by migration
// 002; referenced here for per-table grants inside tenant schemas.
const appRole = "schemafence_app"

// tenantTable describes one base table created in every tenant schema.
type tenantTable struct {
	name string
	ddl  string
	// insertOnly tables get INSERT and SELECT grants and nothing else;
	// UPDATE/DELETE are never granted, so they fail at the database layer
	// no matter what application code does.
	insertOnly bool
}

// baseTables is the DDL set applied to every tenant schema. Each table
// carries tenant_id so the RLS predicate applies uniformly.
var baseTables = []tenantTable{
	{
		name: "projects",
		ddl: `CREATE TABLE IF NOT EXISTS %s.projects (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "members",
		ddl: `CREATE TABLE IF NOT EXISTS %s.members (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			user_id UUID NOT NULL,
			display_name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "audit_log",
		ddl: `CREATE TABLE IF NOT EXISTS %s.audit_log (
			id BIGSERIAL PRIMARY KEY,
			tenant_id UUID NOT NULL,
			actor UUID NOT NULL,
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			detail JSONB NOT NULL DEFAULT '{}'::jsonb,
			ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		insertOnly: true,
	},
}

// tenantTableDDL returns the ordered statement list that provisions one
// table inside a tenant schema: create, enable and force RLS, attach the
// isolation policy, grant. schemaName must already be validated; every
// statement embeds it through ident.Quote only.
func tenantTableDDL(schemaName string, t tenantTable) []string {
	qs := ident.Quote(schemaName)
	qt := qs + "." + ident.Quote(t.name)

	stmts := []string{
		fmt.Sprintf(t.ddl, qs),
		// FORCE makes the policy bind even for the table owner, so a
		// compromised or buggy application role cannot opt out.
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", qt),
		fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", qt),
		fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON %s`, qt),
		fmt.Sprintf(`CREATE POLICY tenant_isolation ON %s
			USING (tenant_id = current_setting('app.tenant_id')::uuid)
			WITH CHECK (tenant_id = current_setting('app.tenant_id')::uuid)`, qt),
	}

	if t.insertOnly {
		stmts = append(stmts,
			fmt.Sprintf("REVOKE ALL ON %s FROM %s", qt, appRole),
			fmt.Sprintf("GRANT SELECT, INSERT ON %s TO %s", qt, appRole),
			fmt.Sprintf("GRANT USAGE ON SEQUENCE %s.%s TO %s",
				qs, ident.Quote(t.name+"_id_seq"), appRole),
		)
	} else {
		stmts = append(stmts,
			fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON %s TO %s", qt, appRole))
	}

	return stmts
}

// schemaDDL returns the statements that create the schema shell itself.
func schemaDDL(schemaName string) []string {
	qs := ident.Quote(schemaName)

	return []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", qs),
		fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", qs, appRole),
	}
}

// dropSchemaDDL returns the single irreversible statement of the system.
func dropSchemaDDL(schemaName string) string {
	return fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", ident.Quote(schemaName))
}
