// Package vault provides the keyed hashing used for passwords and session tokens.
//
// Hashes are HMAC-SHA256 over a single shared secret. This is not meant to protect
// real credentials; it only keeps plain passwords and session ids out of responses.
package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DefaultSecret is the shared key the seeded accounts were hashed with.
const DefaultSecret = "This is not a production server"

// Hasher computes keyed hashes.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher for the given secret. An empty secret falls back to DefaultSecret.
func NewHasher(secret string) *Hasher {
	if secret == "" {
		secret = DefaultSecret
	}
	return &Hasher{key: []byte(secret)}
}

// Hash returns the hex encoded HMAC-SHA256 of s.
func (h *Hasher) Hash(s string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether s hashes to expected, in constant time.
func (h *Hasher) Verify(s, expected string) bool {
	return hmac.Equal([]byte(h.Hash(s)), []byte(expected))
}
