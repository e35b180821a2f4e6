package client

import (
	"context"
	"net/url"
)

// MemberService handles membership operations. All calls require the
// organization to be ready.
type MemberService struct {
	c *Client
}

// memberListResponse wraps the roster response.
type memberListResponse struct {
	Members []Member `json:"members"`
}

func membersPath(slug string) string {
	return "/api/v1/orgs/" + url.PathEscape(slug) + "/members"
}

// List returns the active members of an organization.
func (s *MemberService) List(ctx context.Context, slug string) ([]Member, error) {
	var resp memberListResponse
	if err := s.c.get(ctx, membersPath(slug), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// Add adds a user to an organization with the given role.
func (s *MemberService) Add(ctx context.Context, slug string, req *AddMemberRequest) (*Member, error) {
	var member Member
	if err := s.c.post(ctx, membersPath(slug), req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// ChangeRole changes a member's role.
func (s *MemberService) ChangeRole(ctx context.Context, slug, userID, role string) (*Member, error) {
	var member Member
	body := map[string]string{"role": role}
	if err := s.c.patch(ctx, membersPath(slug)+"/"+url.PathEscape(userID), body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// Remove removes a member from an organization.
func (s *MemberService) Remove(ctx context.Context, slug, userID string) error {
	return s.c.del(ctx, membersPath(slug)+"/"+url.PathEscape(userID), nil, nil)
}
