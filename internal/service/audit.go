package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/objstore"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// exportPageSize is how many entries one export query page fetches.
const exportPageSize = 1000

// AuditService reads the bound tenant's audit ledger and produces
// exports into the artifact store.
type AuditService struct {
	querier   AuditQuerier
	artifacts objstore.ArtifactStore
	audit     AuditEnqueuer
	log       *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(querier AuditQuerier, artifacts objstore.ArtifactStore, audit AuditEnqueuer, log *logrus.Logger) *AuditService {
	return &AuditService{querier: querier, artifacts: artifacts, audit: audit, log: log}
}

// Query returns audit entries for the bound tenant. Any member may read
// the ledger; it records actions, not secrets.
func (s *AuditService) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return s.querier.Query(ctx, opts)
}

// Export writes the tenant's full audit ledger to the artifact store as
// JSON and returns the artifact name. Requires owner or admin.
func (s *AuditService) Export(ctx context.Context) (string, error) {
	t, err := tenantctx.From(ctx)
	if err != nil {
		return "", err
	}

	if !models.Elevated(t.Role) {
		return "", models.ErrInsufficientRole
	}

	var all []models.AuditEntry
	offset := 0
	for {
		page, hasMore, err := s.querier.Query(ctx, models.AuditQueryOpts{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return "", err
		}
		all = append(all, page...)
		if !hasMore {
			break
		}
		offset += exportPageSize
	}

	data, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}

	name := fmt.Sprintf("audit-export-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	if err := s.artifacts.Put(ctx, t.Slug, name, data); err != nil {
		return "", err
	}

	s.audit.Enqueue(&AuditJob{
		TenantID:     t.ID,
		SchemaName:   t.SchemaName,
		Actor:        t.UserID,
		Action:       models.ActionExportRequested,
		ResourceType: "export",
		ResourceID:   name,
		Detail:       map[string]any{"entries": len(all)},
	})

	return name, nil
}
