// Package ident guards every dynamically constructed PostgreSQL identifier.
//
// Two rules apply everywhere a tenant-derived name reaches DDL or DML:
// the name must pass Validate, and the statement must embed it via Quote.
// Neither step substitutes for the other. A Validate failure is a
// programming error, not user input to recover from; slug formatting and
// collision handling happen upstream during registration.
package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLen is one byte under PostgreSQL's 63-byte identifier limit, leaving
// room for quoting overhead.
const MaxLen = 62

// schemaPrefix is prepended to every tenant slug to form its schema name.
const schemaPrefix = "tenant_"

var (
	identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,61}$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Validate reports whether name is safe to embed in DDL as a schema or
// table identifier. It performs no normalization.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("ident: empty identifier")
	}

	if len(name) > MaxLen {
		return fmt.Errorf("ident: identifier %q exceeds %d bytes", name, MaxLen)
	}

	if !identPattern.MatchString(name) {
		return fmt.Errorf("ident: identifier %q must match %s", name, identPattern.String())
	}

	return nil
}

// Quote wraps a validated identifier in double quotes, doubling any
// embedded quote characters. Callers must run Validate first; Quote alone
// is not an injection defense.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Slugify derives a URL-safe slug from a display name: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, leading/trailing hyphens
// trimmed. Returns an error when nothing usable remains.
func Slugify(display string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(display))
	s = nonSlugRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "", fmt.Errorf("ident: name %q yields an empty slug", display)
	}

	// Leave headroom for the schema prefix and a collision suffix.
	if max := MaxLen - len(schemaPrefix) - 4; len(s) > max {
		s = strings.Trim(s[:max], "-")
	}

	if !slugPattern.MatchString(s) {
		return "", fmt.Errorf("ident: derived slug %q is malformed", s)
	}

	return s, nil
}

// ValidSlug reports whether s is an acceptable tenant slug as-is.
func ValidSlug(s string) bool {
	return s != "" && len(s) <= MaxLen-len(schemaPrefix) && slugPattern.MatchString(s)
}

// SchemaName derives the tenant schema name from a slug. The result is a
// pure function of the slug and always passes Validate for any slug
// accepted by Slugify or ValidSlug.
func SchemaName(slug string) string {
	return schemaPrefix + strings.ReplaceAll(slug, "-", "_")
}
