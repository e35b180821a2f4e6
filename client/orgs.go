package client

import (
	"context"
	"net/url"
)

// OrgService handles organization lifecycle operations.
type OrgService struct {
	c *Client
}

// Create registers an organization. Provisioning is asynchronous: the
// returned org is pending until Get reports it ready.
func (s *OrgService) Create(ctx context.Context, req *CreateOrgRequest) (*Org, error) {
	var org Org
	if err := s.c.post(ctx, "/api/v1/orgs", req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// Get returns an organization the principal is a member of, in any
// lifecycle state.
func (s *OrgService) Get(ctx context.Context, slug string) (*Org, error) {
	var org Org
	if err := s.c.get(ctx, "/api/v1/orgs/"+url.PathEscape(slug), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// Update applies a partial settings update.
func (s *OrgService) Update(ctx context.Context, slug string, req *UpdateOrgRequest) (*Org, error) {
	var org Org
	if err := s.c.patch(ctx, "/api/v1/orgs/"+url.PathEscape(slug), req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// RetryProvision re-queues a failed organization for provisioning.
func (s *OrgService) RetryProvision(ctx context.Context, slug string) (*Org, error) {
	var org Org
	if err := s.c.post(ctx, "/api/v1/orgs/"+url.PathEscape(slug)+"/provision", nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// Delete requests irreversible deletion. Confirm must equal the slug and
// TOTPCode must be a fresh second-factor code for the calling owner.
func (s *OrgService) Delete(ctx context.Context, slug string, req *DeleteOrgRequest) error {
	return s.c.del(ctx, "/api/v1/orgs/"+url.PathEscape(slug), req, nil)
}
