package models

import (
	"errors"
	"time"
)

// APIKey represents one issued API credential. The plaintext secret is
// returned exactly once at creation time; only its SHA-256 digest and a
// short display suffix are ever stored.
type APIKey struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Label        *string    `json:"label"`
	SecretDigest string     `json:"-"` // Never expose in JSON
	Last4        string     `json:"last4"` // Uppercase 6-char secret suffix
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at"` // nil means active
	LastUsedAt   *time.Time `json:"-"`
}

// Validate validates APIKey fields before storage. ID and CreatedAt are
// assigned by the store and are not required here.
func (k *APIKey) Validate() error {
	if k.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if len(k.OwnerID) > 100 {
		return errors.New("owner_id must be <= 100 characters")
	}
	if k.Label != nil {
		if *k.Label == "" {
			return errors.New("label must be null or non-empty")
		}
		if len(*k.Label) > 100 {
			return errors.New("label must be <= 100 characters")
		}
	}
	if len(k.SecretDigest) != 64 {
		return errors.New("secret_digest must be a hex SHA-256 digest")
	}
	if len(k.Last4) != 6 {
		return errors.New("last4 must be exactly 6 characters")
	}
	return nil
}

// Active reports whether the key has not been revoked.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}
