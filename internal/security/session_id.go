package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionIDBytes is the entropy of a session identifier. 32 random bytes
// give 256 bits, so repeated logins never collide in practice.
const sessionIDBytes = 32

// NewSessionID generates a cryptographically secure random session
// identifier, encoded URL-safe so it travels in a header without escaping.
func NewSessionID() (string, error) {
	raw := make([]byte, sessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
