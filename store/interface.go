package store

import (
	"time"

	"github.com/mailshield/mailshield/models"
)

// Store defines the interface for data storage implementations
// Different storage backends (memory, postgres, etc.) can implement this interface
type Store interface {
	// API key operations. CreateAPIKey assigns ID and CreatedAt when unset.
	// RevokeAPIKey matches on both key id and owner id, is idempotent, and
	// returns ErrNotFound when no such row exists for the owner.
	CreateAPIKey(key *models.APIKey) error
	ListAPIKeysByOwner(ownerID string) ([]*models.APIKey, error)
	RevokeAPIKey(ownerID, keyID string) (*models.APIKey, error)
	GetAPIKeyByDigest(digest string) (*models.APIKey, error)
	TouchAPIKey(keyID string) error

	// Account operations. EnsureAccount inserts the given row if the owner
	// has none yet and returns the stored row either way.
	EnsureAccount(account *models.Account) (*models.Account, error)

	// Usage operations. AddUsage accumulates counts into the owner's row for
	// the given day; GetUsage returns days in [from, to] ascending.
	AddUsage(ownerID string, day time.Time, ok, suspect, disposable int) error
	GetUsage(ownerID string, from, to time.Time) ([]*models.UsageDay, error)
}
