package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SessionTokenBytes is the entropy of an opaque session token. Encoded as
// hex the token is twice as long.
const SessionTokenBytes = 32

// NewSessionToken returns a random opaque bearer token. It carries no data;
// everything about the session lives server side under the token.
func NewSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns a short SHA-256 fingerprint of a bearer token so
// that sessions can be correlated in logs without writing the token itself.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
