package secrets

import (
	"bytes"
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewBoxRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not hex", "zz"},
		{"too short", "deadbeef"},
		{"too long", testKey + "00"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBox(tt.key); err == nil {
				t.Errorf("NewBox(%q) accepted invalid key", tt.key)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	seed := []byte("JBSWY3DPEHPK3PXP")

	sealed, err := box.Seal("user-1", seed)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if strings.Contains(sealed, string(seed)) {
		t.Fatal("sealed value contains plaintext")
	}

	got, err := box.Open("user-1", sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !bytes.Equal(got, seed) {
		t.Errorf("Open = %q, want %q", got, seed)
	}
}

func TestOpenRejectsWrongOwner(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	sealed, err := box.Seal("user-1", []byte("JBSWY3DPEHPK3PXP"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := box.Open("user-2", sealed); err == nil {
		t.Error("Open succeeded with a different owner")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	if _, err := box.Open("user-1", "dG9vc2hvcnQ="); err == nil {
		t.Error("Open accepted truncated ciphertext")
	}

	if _, err := box.Open("user-1", "not base64!!"); err == nil {
		t.Error("Open accepted non-base64 input")
	}
}

func TestSealIsNonDeterministic(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	a, err := box.Seal("user-1", []byte("seed"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	b, err := box.Seal("user-1", []byte("seed"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if a == b {
		t.Error("two seals of the same plaintext produced identical output")
	}
}
