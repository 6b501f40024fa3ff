// Package auth holds the pieces of authentication that do not touch the
// database: session token generation and hashing, the GitHub OAuth client,
// cookie helpers, and the middleware that resolves the current session.
//
// SESSION TOKENS:
// The browser holds a random token. The server stores only
// sha256(token) as the session ID. Looking up a session means hashing the
// cookie value and querying by the hash, so a copy of the sessions table is
// useless to an attacker.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// sessionTokenBytes is 160 bits of entropy.
	sessionTokenBytes = 20

	// SessionTokenLength is the encoded length: 20 bytes → 32 base32 characters,
	// with no padding because 20 is a multiple of 5.
	SessionTokenLength = 32
)

// GenerateSessionToken returns a new random session token: 20 bytes from the
// OS CSPRNG, base32-encoded and lowercased so it is safe in cookies and URLs.
func GenerateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return strings.ToLower(base32.StdEncoding.EncodeToString(b)), nil
}

// DeriveSessionID maps a session token to its storage key: the lowercase hex
// SHA-256 digest of the token's bytes.
func DeriveSessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
