// Package auth implements the credential gate for tenant-scoped access.
//
// API keys are derived, never stored: the key for a tenant identity is the
// SHA256 digest of the identity concatenated with a shared secret.
// Authorization is recomputing the digest and comparing it with the
// presented key, so there is no identity registry to consult or leak.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var (
	// ErrEmptyIdentity is returned when the tenant identity is empty.
	ErrEmptyIdentity = errors.New("identity cannot be empty")

	// ErrEmptySecret is returned when the shared secret is empty.
	ErrEmptySecret = errors.New("secret cannot be empty")
)

// DeriveAPIKey derives the API key for a tenant identity.
//
// The key is hex(SHA256(identity || secret)). The derivation is deterministic
// and one-way, and must stay stable across releases so previously issued
// keys keep working.
func DeriveAPIKey(identity, secret string) (string, error) {
	if identity == "" {
		return "", ErrEmptyIdentity
	}
	if secret == "" {
		return "", ErrEmptySecret
	}

	sum := sha256.Sum256([]byte(identity + secret))
	return hex.EncodeToString(sum[:]), nil
}

// Authorize reports whether presented is the valid API key for identity.
//
// Possession of the correct key for an identity is authorization itself;
// a mismatch never reveals whether the identity is unknown or only the key
// is wrong. The comparison is constant-time.
func Authorize(identity, presented, secret string) bool {
	expected, err := DeriveAPIKey(identity, secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
