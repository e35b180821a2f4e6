package client

import "context"

// MFAService handles second-factor enrollment.
type MFAService struct {
	c *Client
}

// Enroll provisions a TOTP secret for the calling principal and returns
// the otpauth URL. Re-enrolling replaces the previous secret.
func (s *MFAService) Enroll(ctx context.Context) (string, error) {
	var resp struct {
		OtpauthURL string `json:"otpauth_url"`
	}
	if err := s.c.post(ctx, "/api/v1/mfa/enroll", nil, &resp); err != nil {
		return "", err
	}
	return resp.OtpauthURL, nil
}
