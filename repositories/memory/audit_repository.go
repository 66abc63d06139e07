package memory

import (
	"context"
	"sync"

	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
)

// defaultAuditCapacity bounds the in-memory trail; oldest entries are dropped first
const defaultAuditCapacity = 10000

// AuditRepository keeps the audit trail in a bounded in-memory log
type AuditRepository struct {
	mu       sync.RWMutex
	logs     []*models.AuditLog
	capacity int
}

// NewAuditRepository creates an in-memory audit repository.
// A non-positive capacity selects the default.
func NewAuditRepository(capacity int) *AuditRepository {
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuditRepository{capacity: capacity}
}

var _ repositories.AuditRepository = (*AuditRepository)(nil)

// Insert appends an entry, evicting the oldest one when full
func (r *AuditRepository) Insert(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.logs) >= r.capacity {
		r.logs = r.logs[1:]
	}
	r.logs = append(r.logs, log)
	return nil
}

// ListByProfile returns up to limit entries for the profile, newest first
func (r *AuditRepository) ListByProfile(_ context.Context, profileID string, limit int) ([]*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.AuditLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if r.logs[i].ProfileID == profileID {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}
