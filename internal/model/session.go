package model

import "time"

// Session is a short-lived interactive session bound to one user.
type Session struct {
	SessionID   string            `json:"session_id"`
	UserID      string            `json:"user_id"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	ActionCount int               `json:"action_count"`
	State       map[string]any    `json:"state"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Workflow    *WorkflowProgress `json:"workflow,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// WorkflowProgress tracks ordinal progress through a fixed number of steps.
type WorkflowProgress struct {
	Name        string         `json:"name"`
	CurrentStep int            `json:"current_step"`
	TotalSteps  int            `json:"total_steps"`
	Data        map[string]any `json:"data"`
	Completed   bool           `json:"completed"`
	StartedAt   time.Time      `json:"started_at"`
}
