package repository

import (
	"context"

	"docgate/internal/model"
)

// ApprovalRepository stores approval records and their append-only history.
// No business logic here: transition legality is decided by callers.
type ApprovalRepository interface {
	// CreateRecord inserts a new record. ErrAlreadyExists if the summary ID is taken.
	CreateRecord(ctx context.Context, rec *model.ApprovalRecord) error

	// FindRecord returns a record by summary ID, or ErrNotFound.
	FindRecord(ctx context.Context, summaryID string) (*model.ApprovalRecord, error)

	// AppendApproval appends a and sets the record's current state to a.State
	// in one atomic step. ErrNotFound if the record does not exist.
	// A non-empty from makes the write conditional: ErrStateConflict if the
	// record is no longer in that state, and nothing is written.
	AppendApproval(ctx context.Context, a *model.Approval, from model.ApprovalState) error

	// ListApprovals returns the history of a summary, oldest first.
	ListApprovals(ctx context.Context, summaryID string) ([]model.Approval, error)

	// ListByState returns records in state, oldest created first.
	ListByState(ctx context.Context, state model.ApprovalState, pq PageQuery) (*PageResult[model.ApprovalRecord], error)
}
