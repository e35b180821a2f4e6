package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/secrets"
	"github.com/schemafence/schemafence/internal/security"
)

const mfaTestKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newMFAService(t *testing.T) (*MFAService, *mockMFAStore) {
	t.Helper()
	box, err := secrets.NewBox(mfaTestKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	store := &mockMFAStore{}
	return NewMFAService(store, box, nil, "schemafence-test"), store
}

func TestMFAService_EnrollAndVerify(t *testing.T) {
	svc, store := newMFAService(t)
	userID := uuid.New()

	url, err := svc.Enroll(context.Background(), userID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !strings.HasPrefix(url, "otpauth://totp/") {
		t.Errorf("provisioning URL = %q", url)
	}

	// The stored seed must be sealed, never the base32 secret itself.
	key, err := otp.NewKeyFromURL(url)
	if err != nil {
		t.Fatalf("parsing provisioning URL: %v", err)
	}
	if strings.Contains(store.seeds[userID], key.Secret()) {
		t.Error("stored seed contains plaintext secret")
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generating code: %v", err)
	}

	if err := svc.Verify(context.Background(), userID, code); err != nil {
		t.Errorf("Verify with fresh code: %v", err)
	}

	if err := svc.Verify(context.Background(), userID, "000000"); !errors.Is(err, models.ErrSecondFactor) {
		t.Errorf("wrong code error = %v, want ErrSecondFactor", err)
	}
}

func TestMFAService_VerifyUnenrolled(t *testing.T) {
	svc, _ := newMFAService(t)

	err := svc.Verify(context.Background(), uuid.New(), "123456")
	if !errors.Is(err, models.ErrSecondFactor) {
		t.Errorf("unenrolled error = %v, want ErrSecondFactor", err)
	}
}

func TestMFAService_LockoutAfterRepeatedFailures(t *testing.T) {
	box, err := secrets.NewBox(mfaTestKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	guard := security.NewAttemptGuard(ctx, testLogger())

	svc := NewMFAService(&mockMFAStore{}, box, guard, "schemafence-test")
	userID := uuid.New()

	url, err := svc.Enroll(context.Background(), userID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	for i := 0; i < security.AttemptMaxFailures; i++ {
		if err := svc.Verify(context.Background(), userID, "000000"); err == nil {
			t.Fatal("wrong code verified")
		}
	}

	// Even a correct code is refused while locked out.
	key, err := otp.NewKeyFromURL(url)
	if err != nil {
		t.Fatalf("parsing provisioning URL: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generating code: %v", err)
	}
	if err := svc.Verify(context.Background(), userID, code); !errors.Is(err, models.ErrSecondFactor) {
		t.Errorf("locked-out verify error = %v, want ErrSecondFactor", err)
	}
}

func TestMFAService_ReEnrollReplacesSecret(t *testing.T) {
	svc, _ := newMFAService(t)
	userID := uuid.New()

	first, err := svc.Enroll(context.Background(), userID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if _, err := svc.Enroll(context.Background(), userID); err != nil {
		t.Fatalf("re-Enroll: %v", err)
	}

	oldKey, err := otp.NewKeyFromURL(first)
	if err != nil {
		t.Fatalf("parsing first URL: %v", err)
	}
	code, err := totp.GenerateCode(oldKey.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generating code: %v", err)
	}

	if err := svc.Verify(context.Background(), userID, code); !errors.Is(err, models.ErrSecondFactor) {
		t.Errorf("old secret still verifies after re-enrollment: %v", err)
	}
}
