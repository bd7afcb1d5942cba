package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docgate/internal/model"
	"docgate/internal/repository"
)

var (
	ErrInvalidState = errors.New("invalid approval state")
	ErrMissingID    = errors.New("summary id is required")
)

// legal is the transition graph. A second APPROVED from APPROVED records an
// additional approver.
var legal = map[model.ApprovalState][]model.ApprovalState{
	model.StatePendingReview: {model.StateApproved, model.StateRejected},
	model.StateApproved:      {model.StateApproved, model.StateRejected, model.StatePublished},
}

// CanTransition reports whether from -> to is an edge of the approval graph.
// REJECTED and PUBLISHED are terminal.
func CanTransition(from, to model.ApprovalState) bool {
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Workflow records approval state for generated summaries.
//
// TrackApproval records whatever transition it is given. Whether a
// transition is allowed is decided by the caller, which holds the RBAC
// context the workflow does not have; CanTransition is the shared graph.
type Workflow struct {
	repo repository.ApprovalRepository
	now  func() time.Time
}

func NewWorkflow(repo repository.ApprovalRepository) *Workflow {
	return &Workflow{repo: repo, now: time.Now}
}

// CreateRecord stores a new summary in PENDING_REVIEW.
func (w *Workflow) CreateRecord(ctx context.Context, summaryID, content, format, audience, requestedBy string) (*model.ApprovalRecord, error) {
	if strings.TrimSpace(summaryID) == "" {
		return nil, ErrMissingID
	}
	rec := &model.ApprovalRecord{
		SummaryID:    summaryID,
		Content:      content,
		Format:       format,
		Audience:     audience,
		RequestedBy:  requestedBy,
		CurrentState: model.StatePendingReview,
		CreatedAt:    w.now().UTC(),
	}
	if err := w.repo.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("create approval record: %w", err)
	}
	return rec, nil
}

// TrackApproval appends an approval entry and moves the record to state.
func (w *Workflow) TrackApproval(ctx context.Context, summaryID string, state model.ApprovalState, approverID, approverName, notes string, metadata map[string]string) (*model.Approval, error) {
	return w.track(ctx, summaryID, "", state, approverID, approverName, notes, metadata)
}

// TrackTransition is TrackApproval conditioned on the record still being in
// from. A concurrent change in between yields repository.ErrStateConflict
// and records nothing.
func (w *Workflow) TrackTransition(ctx context.Context, summaryID string, from, to model.ApprovalState, approverID, approverName, notes string, metadata map[string]string) (*model.Approval, error) {
	if !from.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, from)
	}
	return w.track(ctx, summaryID, from, to, approverID, approverName, notes, metadata)
}

func (w *Workflow) track(ctx context.Context, summaryID string, from, state model.ApprovalState, approverID, approverName, notes string, metadata map[string]string) (*model.Approval, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	a := &model.Approval{
		SummaryID:          summaryID,
		State:              state,
		ApprovedBy:         approverID,
		ApprovedByUsername: approverName,
		Notes:              notes,
		Metadata:           metadata,
		ApprovedAt:         w.now().UTC(),
	}
	if err := w.repo.AppendApproval(ctx, a, from); err != nil {
		return nil, fmt.Errorf("track approval: %w", err)
	}
	return a, nil
}

// HasMinimumApprovals reports whether at least n distinct users have
// recorded APPROVED for the summary.
func (w *Workflow) HasMinimumApprovals(ctx context.Context, summaryID string, n int) (bool, error) {
	count, err := w.DistinctApprovers(ctx, summaryID)
	if err != nil {
		return false, err
	}
	return count >= n, nil
}

// DistinctApprovers counts distinct users with an APPROVED entry.
func (w *Workflow) DistinctApprovers(ctx context.Context, summaryID string) (int, error) {
	history, err := w.repo.ListApprovals(ctx, summaryID)
	if err != nil {
		return 0, fmt.Errorf("list approvals: %w", err)
	}
	seen := make(map[string]struct{})
	for _, a := range history {
		if a.State == model.StateApproved && a.ApprovedBy != "" {
			seen[a.ApprovedBy] = struct{}{}
		}
	}
	return len(seen), nil
}

// HasUserApproved reports whether userID has an APPROVED entry on the summary.
func (w *Workflow) HasUserApproved(ctx context.Context, summaryID, userID string) (bool, error) {
	history, err := w.repo.ListApprovals(ctx, summaryID)
	if err != nil {
		return false, fmt.Errorf("list approvals: %w", err)
	}
	for _, a := range history {
		if a.State == model.StateApproved && a.ApprovedBy == userID {
			return true, nil
		}
	}
	return false, nil
}

// GetPendingApprovals lists records awaiting review, oldest first.
func (w *Workflow) GetPendingApprovals(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	res, err := w.repo.ListByState(ctx, model.StatePendingReview, pq)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return res, nil
}

// GetRecord returns the record of a summary.
func (w *Workflow) GetRecord(ctx context.Context, summaryID string) (*model.ApprovalRecord, error) {
	return w.repo.FindRecord(ctx, summaryID)
}

// GetApprovals returns the approval history of a summary, oldest first.
func (w *Workflow) GetApprovals(ctx context.Context, summaryID string) ([]model.Approval, error) {
	return w.repo.ListApprovals(ctx, summaryID)
}
