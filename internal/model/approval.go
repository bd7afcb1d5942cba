package model

import "time"

// ApprovalState is the lifecycle state of a generated summary.
type ApprovalState string

const (
	StatePendingReview ApprovalState = "PENDING_REVIEW"
	StateApproved      ApprovalState = "APPROVED"
	StateRejected      ApprovalState = "REJECTED"
	StatePublished     ApprovalState = "PUBLISHED"
)

// Valid reports whether s is a known state.
func (s ApprovalState) Valid() bool {
	switch s {
	case StatePendingReview, StateApproved, StateRejected, StatePublished:
		return true
	}
	return false
}

// ApprovalRecord tracks one generated summary. CurrentState only changes
// through the approval workflow.
type ApprovalRecord struct {
	SummaryID    string        `json:"summary_id"`
	Content      string        `json:"content"`
	Format       string        `json:"format"`
	Audience     string        `json:"audience"`
	RequestedBy  string        `json:"requested_by"`
	CurrentState ApprovalState `json:"current_state"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Approval is one append-only state transition entry.
type Approval struct {
	SummaryID          string            `json:"summary_id"`
	State              ApprovalState     `json:"state"`
	ApprovedBy         string            `json:"approved_by"`
	ApprovedByUsername string            `json:"approved_by_username"`
	Notes              string            `json:"notes,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	ApprovedAt         time.Time         `json:"approved_at"`
}

// QuarantinedDraft is a generated draft that failed output validation.
// Content is stored redacted.
type QuarantinedDraft struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requested_by"`
	Format      string    `json:"format"`
	Audience    string    `json:"audience"`
	Content     string    `json:"content"`
	Issues      []string  `json:"issues"`
	CreatedAt   time.Time `json:"created_at"`
}
