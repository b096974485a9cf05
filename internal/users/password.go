package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPasswordIterations is the PBKDF2-HMAC-SHA256 work factor.
	DefaultPasswordIterations = 100_000

	passwordSaltLength = 64
	passwordKeyLength  = 64
)

// DerivePasswordKey derives a fixed-length key from a password and salt.
// Deterministic: the same (password, salt, iterations) always yields the
// same key.
func DerivePasswordKey(password string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultPasswordIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, passwordKeyLength, sha256.New)
}

// PasswordKeysEqual compares a derived key with the stored key in constant
// time so response timing reveals nothing about the match prefix.
func PasswordKeysEqual(derived, stored []byte) bool {
	return subtle.ConstantTimeCompare(derived, stored) == 1
}

func newPasswordSalt() ([]byte, error) {
	salt := make([]byte, passwordSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("users: generating password salt: %w", err)
	}
	return salt, nil
}
