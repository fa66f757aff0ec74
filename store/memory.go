package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mailshield/mailshield/models"
)

// MemoryStore is a thread-safe in-memory Store used for tests and local
// development without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	keys     map[string]*models.APIKey           // key id -> key
	accounts map[string]*models.Account          // owner id -> account
	usage    map[string]map[string]*models.UsageDay // owner id -> day (YYYY-MM-DD) -> counts
}

// NewMemoryStore creates a new memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:     make(map[string]*models.APIKey),
		accounts: make(map[string]*models.Account),
		usage:    make(map[string]map[string]*models.UsageDay),
	}
}

// CreateAPIKey stores a new API key, assigning ID and CreatedAt when unset
func (s *MemoryStore) CreateAPIKey(key *models.APIKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	stored := *key
	s.keys[key.ID] = &stored
	return nil
}

// ListAPIKeysByOwner returns all keys for an owner, newest first
func (s *MemoryStore) ListAPIKeysByOwner(ownerID string) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*models.APIKey, 0)
	for _, key := range s.keys {
		if key.OwnerID != ownerID {
			continue
		}
		copied := *key
		keys = append(keys, &copied)
	}

	// Newest first, matching the Postgres ORDER BY created_at DESC
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j].CreatedAt.After(keys[i].CreatedAt) {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}

	return keys, nil
}

// RevokeAPIKey marks a key revoked if it belongs to the owner. Revoking an
// already-revoked key keeps the original revocation time.
func (s *MemoryStore) RevokeAPIKey(ownerID, keyID string) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[keyID]
	if !exists || key.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	if key.RevokedAt == nil {
		now := time.Now().UTC()
		key.RevokedAt = &now
	}

	copied := *key
	return &copied, nil
}

// GetAPIKeyByDigest looks up a key by its secret digest
func (s *MemoryStore) GetAPIKeyByDigest(digest string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.keys {
		if key.SecretDigest == digest {
			copied := *key
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// TouchAPIKey updates a key's last-used timestamp
func (s *MemoryStore) TouchAPIKey(keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[keyID]
	if !exists {
		return ErrNotFound
	}

	now := time.Now().UTC()
	key.LastUsedAt = &now
	return nil
}

// EnsureAccount inserts the account if the owner has none and returns the
// stored row
func (s *MemoryStore) EnsureAccount(account *models.Account) (*models.Account, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.accounts[account.OwnerID]; exists {
		if account.Email != "" {
			existing.Email = account.Email
		}
		copied := *existing
		return &copied, nil
	}

	stored := *account
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.accounts[account.OwnerID] = &stored

	copied := stored
	return &copied, nil
}

// AddUsage accumulates counts into the owner's row for the given day
func (s *MemoryStore) AddUsage(ownerID string, day time.Time, ok, suspect, disposable int) error {
	record := &models.UsageDay{
		OwnerID:    ownerID,
		Day:        models.DayOf(day),
		OK:         ok,
		Suspect:    suspect,
		Disposable: disposable,
	}
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usage[ownerID] == nil {
		s.usage[ownerID] = make(map[string]*models.UsageDay)
	}

	dayKey := record.Day.Format("2006-01-02")
	if existing, exists := s.usage[ownerID][dayKey]; exists {
		existing.OK += ok
		existing.Suspect += suspect
		existing.Disposable += disposable
		return nil
	}

	s.usage[ownerID][dayKey] = record
	return nil
}

// GetUsage returns the owner's usage rows in [from, to], ascending by day
func (s *MemoryStore) GetUsage(ownerID string, from, to time.Time) ([]*models.UsageDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from = models.DayOf(from)
	to = models.DayOf(to)

	days := make([]*models.UsageDay, 0)
	for _, record := range s.usage[ownerID] {
		if record.Day.Before(from) || record.Day.After(to) {
			continue
		}
		copied := *record
		days = append(days, &copied)
	}

	for i := 0; i < len(days); i++ {
		for j := i + 1; j < len(days); j++ {
			if days[j].Day.Before(days[i].Day) {
				days[i], days[j] = days[j], days[i]
			}
		}
	}

	return days, nil
}
