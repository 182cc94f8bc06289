package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrEmptySecret = errors.New("secret cannot be empty")
)

const (
	DefaultKeyLength = 32 // 256 bits
)

// HashToken returns the hex sha256 digest used to index tokens without
// keeping the raw value around.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// DeriveKey expands the process secret into a purpose-bound key so that the
// raw secret is never used directly as key material.
func DeriveKey(secret, purpose string, length ...int) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	n := DefaultKeyLength
	if len(length) > 0 && length[0] > 0 {
		n = length[0]
	}

	key := make([]byte, n)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
