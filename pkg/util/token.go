package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateSecureToken returns n cryptographically random bytes, hex-encoded
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRequestID returns a random UUID string for request and token IDs
func GenerateRequestID() string {
	return uuid.NewString()
}
