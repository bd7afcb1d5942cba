package model

import "time"

// CircuitPhase is the state of a circuit breaker.
type CircuitPhase string

const (
	CircuitClosed   CircuitPhase = "CLOSED"
	CircuitOpen     CircuitPhase = "OPEN"
	CircuitHalfOpen CircuitPhase = "HALF_OPEN"
)

// CircuitState is a snapshot of one dependency's breaker.
type CircuitState struct {
	Name                string       `json:"name"`
	Phase               CircuitPhase `json:"phase"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OpenedAt            *time.Time   `json:"opened_at,omitempty"`
}
