package memory

import (
	"context"
	"sync"

	"docgate/internal/model"
	"docgate/internal/repository"
)

// QuarantineRepository keeps quarantined drafts in insertion order.
type QuarantineRepository struct {
	mu     sync.RWMutex
	drafts []model.QuarantinedDraft
}

func NewQuarantineRepository() *QuarantineRepository { return &QuarantineRepository{} }

var _ repository.QuarantineRepository = (*QuarantineRepository)(nil)

func (r *QuarantineRepository) Add(_ context.Context, d *model.QuarantinedDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := *d
	entry.Issues = append([]string(nil), d.Issues...)
	r.drafts = append(r.drafts, entry)
	return nil
}

func (r *QuarantineRepository) List(_ context.Context, pq repository.PageQuery) (*repository.PageResult[model.QuarantinedDraft], error) {
	r.mu.RLock()
	items := make([]model.QuarantinedDraft, len(r.drafts))
	copy(items, r.drafts)
	r.mu.RUnlock()
	return page(items, pq), nil
}
