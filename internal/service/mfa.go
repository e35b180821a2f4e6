package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/secrets"
	"github.com/schemafence/schemafence/internal/security"
)

// Compile-time checks: *MFAService serves both the API surface and the
// deletion second-factor hook.
var (
	_ domain.MFAService = (*MFAService)(nil)
	_ SecondFactor      = (*MFAService)(nil)
)

// MFAEnrollmentStore persists sealed TOTP seeds.
type MFAEnrollmentStore interface {
	Enroll(ctx context.Context, userID uuid.UUID, encryptedSeed string) error
	EncryptedSeed(ctx context.Context, userID uuid.UUID) (string, error)
}

// MFAService manages TOTP enrollment and verification. Seeds are sealed
// with the service key before storage, bound to the owning user ID.
type MFAService struct {
	store  MFAEnrollmentStore
	box    *secrets.Box
	guard  *security.AttemptGuard
	issuer string
}

// NewMFAService creates an MFAService. guard may be nil to disable
// failure lockout (tests only).
func NewMFAService(store MFAEnrollmentStore, box *secrets.Box, guard *security.AttemptGuard, issuer string) *MFAService {
	if issuer == "" {
		issuer = "schemafence"
	}
	return &MFAService{store: store, box: box, guard: guard, issuer: issuer}
}

// Enroll generates a fresh TOTP secret for the user, stores it sealed and
// returns the otpauth:// provisioning URL. Re-enrollment replaces the old
// secret.
func (s *MFAService) Enroll(ctx context.Context, userID uuid.UUID) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: userID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("generating TOTP secret: %w", err)
	}

	sealed, err := s.box.Seal(userID.String(), []byte(key.Secret()))
	if err != nil {
		return "", err
	}

	if err := s.store.Enroll(ctx, userID, sealed); err != nil {
		return "", err
	}

	return key.URL(), nil
}

// Verify checks a 6-digit code against the user's enrolled secret. Every
// failure mode maps to ErrSecondFactor so callers leak nothing about
// enrollment state.
func (s *MFAService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	subject := userID.String()
	if s.guard != nil && s.guard.IsBlocked(subject) {
		return models.ErrSecondFactor
	}

	if err := s.verify(ctx, userID, code); err != nil {
		if s.guard != nil {
			s.guard.RecordFailure(subject)
		}
		return err
	}

	if s.guard != nil {
		s.guard.Reset(subject)
	}

	return nil
}

func (s *MFAService) verify(ctx context.Context, userID uuid.UUID, code string) error {
	sealed, err := s.store.EncryptedSeed(ctx, userID)
	if err != nil {
		return err
	}

	seed, err := s.box.Open(userID.String(), sealed)
	if err != nil {
		return fmt.Errorf("%w: unsealing secret", models.ErrSecondFactor)
	}

	if !totp.Validate(code, string(seed)) {
		return models.ErrSecondFactor
	}

	return nil
}
