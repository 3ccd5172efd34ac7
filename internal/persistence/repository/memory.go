package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
)

// InMemoryAuditLogRepository mirrors the Mongo repository's semantics over a
// slice. It backs handler and consumer tests that should not need a running
// database.
type InMemoryAuditLogRepository struct {
	mu   sync.RWMutex
	logs []domain.AuditLog

	// FailWith, when set, makes Insert return that error. Tests use it to
	// simulate a transient store outage.
	FailWith error
}

var _ domain.AuditLogRepository = (*InMemoryAuditLogRepository)(nil)

func NewInMemoryAuditLogRepository() *InMemoryAuditLogRepository {
	return &InMemoryAuditLogRepository{}
}

func (r *InMemoryAuditLogRepository) Insert(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return r.FailWith
	}

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	r.logs = append(r.logs, *log)
	return nil
}

func matches(l domain.AuditLog, f domain.AuditLogFilter) bool {
	if f.ResourceType != "" && l.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && l.ResourceID != f.ResourceID {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Start != nil && l.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && l.CreatedAt.After(*f.End) {
		return false
	}
	return true
}

func sortNewestFirst(logs []domain.AuditLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
}

func (r *InMemoryAuditLogRepository) List(_ context.Context, f domain.AuditLogFilter, limit int64) ([]domain.AuditLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.AuditLog{}
	for _, l := range r.logs {
		if matches(l, f) {
			matched = append(matched, l)
		}
	}

	sortNewestFirst(matched)

	total := int64(len(matched))
	if limit > 0 && total > limit {
		matched = matched[:limit]
	}

	return matched, total, nil
}

func (r *InMemoryAuditLogRepository) FindByResourceID(_ context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.AuditLog{}
	for _, l := range r.logs {
		if l.ResourceID != resourceID {
			continue
		}
		if resourceType != "" && l.ResourceType != resourceType {
			continue
		}
		matched = append(matched, l)
	}

	sortNewestFirst(matched)
	return matched, nil
}

func (r *InMemoryAuditLogRepository) EnsureIndexes(context.Context) error {
	return nil
}

// Len reports the number of stored records.
func (r *InMemoryAuditLogRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs)
}
