package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
)

// GenerateSecureToken creates a cryptographically secure random token of
// length random bytes, URL-safe base64 encoded.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// TokensEqual compares two tokens in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
