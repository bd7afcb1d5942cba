package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docgate/internal/model"
	"docgate/internal/repository"
)

// ApprovalRepository is a process-local approval store for tests and
// single-instance deployments.
type ApprovalRepository struct {
	mu        sync.RWMutex
	records   map[string]model.ApprovalRecord
	approvals map[string][]model.Approval
}

func NewApprovalRepository() *ApprovalRepository {
	return &ApprovalRepository{
		records:   make(map[string]model.ApprovalRecord),
		approvals: make(map[string][]model.Approval),
	}
}

var _ repository.ApprovalRepository = (*ApprovalRepository)(nil)

func (r *ApprovalRepository) CreateRecord(_ context.Context, rec *model.ApprovalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.SummaryID]; ok {
		return fmt.Errorf("approval record %s: %w", rec.SummaryID, repository.ErrAlreadyExists)
	}
	r.records[rec.SummaryID] = *rec
	return nil
}

func (r *ApprovalRepository) FindRecord(_ context.Context, summaryID string) (*model.ApprovalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[summaryID]
	if !ok {
		return nil, fmt.Errorf("approval record %s: %w", summaryID, repository.ErrNotFound)
	}
	return &rec, nil
}

func (r *ApprovalRepository) AppendApproval(_ context.Context, a *model.Approval, from model.ApprovalState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[a.SummaryID]
	if !ok {
		return fmt.Errorf("approval record %s: %w", a.SummaryID, repository.ErrNotFound)
	}
	if from != "" && rec.CurrentState != from {
		return fmt.Errorf("approval record %s is %s, expected %s: %w", a.SummaryID, rec.CurrentState, from, repository.ErrStateConflict)
	}
	entry := *a
	entry.Metadata = copyStrings(a.Metadata)
	r.approvals[a.SummaryID] = append(r.approvals[a.SummaryID], entry)
	rec.CurrentState = a.State
	r.records[a.SummaryID] = rec
	return nil
}

func (r *ApprovalRepository) ListApprovals(_ context.Context, summaryID string) ([]model.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.approvals[summaryID]
	out := make([]model.Approval, len(src))
	for i, a := range src {
		a.Metadata = copyStrings(a.Metadata)
		out[i] = a
	}
	return out, nil
}

func (r *ApprovalRepository) ListByState(_ context.Context, state model.ApprovalState, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	r.mu.RLock()
	var matched []model.ApprovalRecord
	for _, rec := range r.records {
		if rec.CurrentState == state {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].SummaryID < matched[j].SummaryID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return page(matched, pq), nil
}

func page[T any](items []T, pq repository.PageQuery) *repository.PageResult[T] {
	total := len(items)
	start := pq.Offset
	if start > total {
		start = total
	}
	end := total
	if pq.Limit > 0 && start+pq.Limit < end {
		end = start + pq.Limit
	}
	return &repository.PageResult[T]{Items: items[start:end], Total: total}
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
