package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SecretPrefix is the fixed, recognizable tag every issued secret starts
// with. Keys in the wild are identifiable by it without being guessable.
const SecretPrefix = "sk_live_"

// SuffixLength is the number of trailing secret characters retained for
// display in key listings.
const SuffixLength = 6

// 192 bits of entropy per secret
const secretRandomBytes = 24

// GenerateSecret generates a new plaintext API secret. The secret is shown
// to the caller exactly once and only its digest is ever persisted.
func GenerateSecret() (string, error) {
	bytes := make([]byte, secretRandomBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return SecretPrefix + hex.EncodeToString(bytes), nil
}

// DigestSecret computes the hex SHA-256 digest of a secret. Verification
// recomputes the digest and compares; the secret itself is never stored.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SecretSuffix returns the uppercase display suffix of a secret.
func SecretSuffix(secret string) string {
	if len(secret) < SuffixLength {
		return strings.ToUpper(secret)
	}
	return strings.ToUpper(secret[len(secret)-SuffixLength:])
}
