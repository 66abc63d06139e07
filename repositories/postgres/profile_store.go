package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edulytics/portal/repositories"
	"go.uber.org/zap"
)

// ProfileStore implements repositories.ProfileStore on PostgreSQL
type ProfileStore struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileStore creates a new profile store
func NewProfileStore(db *DB, logger *zap.Logger) *ProfileStore {
	return &ProfileStore{db: db, logger: logger}
}

var _ repositories.ProfileStore = (*ProfileStore)(nil)

// Get retrieves one key of a profile
func (s *ProfileStore) Get(ctx context.Context, profileID, key string) (string, bool, error) {
	query := `SELECT value FROM profile_values WHERE profile_id = $1 AND key = $2`

	var value string
	err := GetExecutor(ctx, s.db).QueryRowContext(ctx, query, profileID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get profile value: %w", err)
	}
	return value, true, nil
}

// Set upserts one key of a profile
func (s *ProfileStore) Set(ctx context.Context, profileID, key, value string) error {
	query := `
		INSERT INTO profile_values (profile_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, profileID, key, value); err != nil {
		return fmt.Errorf("failed to set profile value: %w", err)
	}
	return nil
}

// SetMany upserts several keys in one transaction
func (s *ProfileStore) SetMany(ctx context.Context, profileID string, values map[string]string) error {
	return s.db.InTransaction(ctx, func(ctx context.Context) error {
		for k, v := range values {
			if err := s.Set(ctx, profileID, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes keys of a profile
func (s *ProfileStore) Delete(ctx context.Context, profileID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.InTransaction(ctx, func(ctx context.Context) error {
		for _, k := range keys {
			if _, err := GetExecutor(ctx, s.db).ExecContext(ctx,
				`DELETE FROM profile_values WHERE profile_id = $1 AND key = $2`, profileID, k); err != nil {
				return fmt.Errorf("failed to delete profile value: %w", err)
			}
		}
		return nil
	})
}

// HealthCheck delegates to the pool
func (s *ProfileStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close is a no-op; the pool is owned by the RepositoryFactory
func (s *ProfileStore) Close() error {
	return nil
}
