package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/schemafence/schemafence/internal/models"
)

// MFAStore persists TOTP enrollment for the deletion second factor. Seeds
// arrive already encrypted; this store never sees plaintext.
type MFAStore struct {
	Base
}

// NewMFAStore creates an MFAStore.
func NewMFAStore(base Base) *MFAStore {
	return &MFAStore{Base: base}
}

// Enroll stores (or replaces) a user's encrypted TOTP seed.
func (s *MFAStore) Enroll(ctx context.Context, userID uuid.UUID, encryptedSeed string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx, `
		INSERT INTO registry.user_mfa (user_id, secret_enc)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET secret_enc = EXCLUDED.secret_enc, enrolled_at = now()`,
		userID, encryptedSeed)
	if err != nil {
		return fmt.Errorf("storing MFA enrollment: %w", err)
	}

	return nil
}

// EncryptedSeed returns the user's encrypted TOTP seed. ErrSecondFactor
// is returned for unenrolled users so callers cannot distinguish "not
// enrolled" from "wrong code" at the API boundary.
func (s *MFAStore) EncryptedSeed(ctx context.Context, userID uuid.UUID) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var seed string
	err := s.Pool.QueryRow(ctx,
		`SELECT secret_enc FROM registry.user_mfa WHERE user_id = $1`, userID).Scan(&seed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrSecondFactor
	}
	if err != nil {
		return "", fmt.Errorf("reading MFA enrollment: %w", err)
	}

	return seed, nil
}
