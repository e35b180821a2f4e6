package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AuditService handles audit ledger operations.
type AuditService struct {
	c *Client
}

// auditQueryResponse wraps the paginated audit query response.
type auditQueryResponse struct {
	Entries []AuditEntry `json:"entries"`
	HasMore bool         `json:"has_more"`
}

// Query returns audit entries matching the given options.
func (s *AuditService) Query(ctx context.Context, slug string, opts *AuditQueryOptions) ([]AuditEntry, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Action != "" {
			params.Set("action", opts.Action)
		}
		if opts.ResourceType != "" {
			params.Set("resource_type", opts.ResourceType)
		}
		if opts.ResourceID != "" {
			params.Set("resource_id", opts.ResourceID)
		}
		if opts.Actor != "" {
			params.Set("actor", opts.Actor)
		}
		if opts.Since != nil {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp auditQueryResponse
	if err := s.c.get(ctx, "/api/v1/orgs/"+url.PathEscape(slug)+"/audit", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Entries, resp.HasMore, nil
}

// Export writes the full ledger to artifact storage server-side and
// returns the artifact name.
func (s *AuditService) Export(ctx context.Context, slug string) (string, error) {
	var resp struct {
		Artifact string `json:"artifact"`
	}
	if err := s.c.post(ctx, "/api/v1/orgs/"+url.PathEscape(slug)+"/export", nil, &resp); err != nil {
		return "", err
	}
	return resp.Artifact, nil
}
