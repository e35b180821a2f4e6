// Package secrets seals and opens small secrets with AES-256-GCM. Its
// only current consumer is TOTP seed storage: seeds are sealed before
// they touch the registry and opened only at verification time.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// Box encrypts and decrypts with a single service-wide key. The owner
// identifier is bound in as additional authenticated data, so a sealed
// value copied between rows fails to open.
type Box struct {
	key []byte
}

// NewBox creates a Box from a hex-encoded 32-byte key.
func NewBox(hexKey string) (*Box, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: invalid hex key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(key))
	}

	return &Box{key: key}, nil
}

// Seal encrypts plaintext bound to owner. Returns base64-encoded
// nonce+ciphertext.
func (b *Box) Seal(owner string, plaintext []byte) (string, error) {
	gcm, err := b.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(owner))

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same owner.
func (b *Box) Open(owner, ciphertext string) ([]byte, error) {
	gcm, err := b.gcm()
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("secrets: base64 decode: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("secrets: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte(owner))
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt failed: %w", err)
	}

	return plaintext, nil
}

func (b *Box) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}

	return gcm, nil
}
