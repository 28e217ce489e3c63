// Package auth implements the optional API bearer-secret check.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrMalformedHeader = errors.New("malformed authorization header")

// HashSecret returns the comparison digest for a configured secret.
// Secrets are held hashed so an accidental log of server state cannot
// leak them.
func HashSecret(secret string) []byte {
	h := sha256.Sum256([]byte(secret))
	return h[:]
}

// ParseBearer extracts the bearer credential from an Authorization header.
func ParseBearer(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMalformedHeader
	}
	secret := strings.TrimPrefix(header, prefix)
	if secret == "" {
		return "", ErrMalformedHeader
	}
	return secret, nil
}

// Verify reports whether the provided secret matches the stored digest,
// in constant time.
func Verify(provided string, storedHash []byte) bool {
	computed := HashSecret(provided)
	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
