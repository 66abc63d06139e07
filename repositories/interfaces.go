package repositories

import (
	"context"
	"errors"

	"github.com/edulytics/portal/models"
)

// ErrStoreClosed is returned by stores used after Close
var ErrStoreClosed = errors.New("profile store closed")

// ProfileStore is the per-browser-profile key/value state.
// Every key lives inside exactly one profile; profiles never see each other's keys.
type ProfileStore interface {
	// Get returns the value stored under key and whether it was present
	Get(ctx context.Context, profileID, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, profileID, key, value string) error

	// SetMany stores all pairs atomically
	SetMany(ctx context.Context, profileID string, values map[string]string) error

	// Delete removes the keys; missing keys are not an error
	Delete(ctx context.Context, profileID string, keys ...string) error

	// HealthCheck verifies the backing store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases the backing connection
	Close() error
}

// AuditRepository handles auth audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByProfile retrieves the most recent entries of a profile, newest first
	ListByProfile(ctx context.Context, profileID string, limit int) ([]*models.AuditLog, error)
}

// Repositories aggregates the storage the application is wired with
type Repositories struct {
	Profiles  ProfileStore
	AuditLogs AuditRepository
}
