package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mailshield/mailshield/models"
)

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store connection
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying connection pool
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateAPIKey inserts a new API key; the database assigns id and created_at
func (s *PostgresStore) CreateAPIKey(key *models.APIKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO api_keys (owner_id, label, hashed_secret, last4)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`

	row := s.pool.QueryRow(ctx, query,
		key.OwnerID,
		key.Label,
		key.SecretDigest,
		key.Last4,
	)

	if err := row.Scan(&key.ID, &key.CreatedAt); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// ListAPIKeysByOwner returns all keys for an owner, newest first
func (s *PostgresStore) ListAPIKeysByOwner(ownerID string) ([]*models.APIKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id::text, owner_id, label, last4, created_at, revoked_at
		FROM api_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(
			&key.ID,
			&key.OwnerID,
			&key.Label,
			&key.Last4,
			&key.CreatedAt,
			&key.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}

// RevokeAPIKey marks a key revoked if it belongs to the owner. The update is
// conditional so re-revoking keeps the original revocation time; row-level
// atomicity makes concurrent revokes safe without application locking.
func (s *PostgresStore) RevokeAPIKey(ownerID, keyID string) (*models.APIKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		UPDATE api_keys
		SET revoked_at = COALESCE(revoked_at, now())
		WHERE id::text = $1 AND owner_id = $2
		RETURNING id::text, owner_id, label, last4, created_at, revoked_at
	`

	row := s.pool.QueryRow(ctx, query, keyID, ownerID)

	var key models.APIKey
	err := row.Scan(
		&key.ID,
		&key.OwnerID,
		&key.Label,
		&key.Last4,
		&key.CreatedAt,
		&key.RevokedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to revoke API key: %w", err)
	}

	return &key, nil
}

// GetAPIKeyByDigest looks up a key by its secret digest
func (s *PostgresStore) GetAPIKeyByDigest(digest string) (*models.APIKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id::text, owner_id, label, hashed_secret, last4, created_at, revoked_at, last_used_at
		FROM api_keys
		WHERE hashed_secret = $1
	`

	row := s.pool.QueryRow(ctx, query, digest)

	var key models.APIKey
	err := row.Scan(
		&key.ID,
		&key.OwnerID,
		&key.Label,
		&key.SecretDigest,
		&key.Last4,
		&key.CreatedAt,
		&key.RevokedAt,
		&key.LastUsedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return &key, nil
}

// TouchAPIKey updates a key's last-used timestamp
func (s *PostgresStore) TouchAPIKey(keyID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		UPDATE api_keys
		SET last_used_at = now()
		WHERE id::text = $1
	`

	tag, err := s.pool.Exec(ctx, query, keyID)
	if err != nil {
		return fmt.Errorf("failed to touch API key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// EnsureAccount inserts the account if the owner has none and returns the
// stored row. The email is refreshed from the session on every call.
func (s *PostgresStore) EnsureAccount(account *models.Account) (*models.Account, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO accounts (owner_id, email, plan, monthly_quota)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE
		SET email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE accounts.email END
		RETURNING owner_id, email, plan, monthly_quota, created_at
	`

	row := s.pool.QueryRow(ctx, query,
		account.OwnerID,
		account.Email,
		account.Plan,
		account.MonthlyQuota,
	)

	var stored models.Account
	err := row.Scan(
		&stored.OwnerID,
		&stored.Email,
		&stored.Plan,
		&stored.MonthlyQuota,
		&stored.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	return &stored, nil
}

// AddUsage accumulates counts into the owner's row for the given day
func (s *PostgresStore) AddUsage(ownerID string, day time.Time, ok, suspect, disposable int) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO usage_daily (owner_id, day, ok, suspect, disposable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, day) DO UPDATE
		SET ok = usage_daily.ok + EXCLUDED.ok,
		    suspect = usage_daily.suspect + EXCLUDED.suspect,
		    disposable = usage_daily.disposable + EXCLUDED.disposable
	`

	_, err := s.pool.Exec(ctx, query,
		record.OwnerID,
		record.Day,
		record.OK,
		record.Suspect,
		record.Disposable,
	)

	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}

	return nil
}

// GetUsage returns the owner's usage rows in [from, to], ascending by day
func (s *PostgresStore) GetUsage(ownerID string, from, to time.Time) ([]*models.UsageDay, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT day, ok, suspect, disposable
		FROM usage_daily
		WHERE owner_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC
	`

	rows, err := s.pool.Query(ctx, query, ownerID, models.DayOf(from), models.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	defer rows.Close()

	days := make([]*models.UsageDay, 0)
	for rows.Next() {
		record := models.UsageDay{OwnerID: ownerID}
		if err := rows.Scan(
			&record.Day,
			&record.OK,
			&record.Suspect,
			&record.Disposable,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		days = append(days, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}

	return days, nil
}
