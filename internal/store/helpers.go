package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/schemafence/schemafence/internal/models"
)

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}

	if limit > maxListLimit {
		return maxListLimit
	}

	return limit
}

func unmarshalSettings(data []byte, dst *map[string]any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshaling settings: %w", err)
	}

	return nil
}

// buildAuditFilter builds a WHERE clause and args from AuditQueryOpts.
// Placeholders continue from nextArg so callers can append paging args.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.Action != "" {
		conditions = append(conditions, "action = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Action)
		argIdx++
	}
	if opts.ResourceType != "" {
		conditions = append(conditions, "resource_type = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ResourceType)
		argIdx++
	}
	if opts.ResourceID != "" {
		conditions = append(conditions, "resource_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ResourceID)
		argIdx++
	}
	if opts.Actor != "" {
		conditions = append(conditions, "actor = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Actor)
		argIdx++
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, opts.Since)
		argIdx++
	}

	if len(conditions) == 0 {
		return "", nil, argIdx
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, argIdx
}
