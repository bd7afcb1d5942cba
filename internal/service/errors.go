package service

import (
	"errors"
	"fmt"
	"strings"

	"docgate/internal/validation"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrNotFound          = errors.New("summary not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrServicePaused     = errors.New("translation service paused after an output leak")
	ErrInvalidTransition = errors.New("invalid approval transition")
)

// ValidationError rejects malformed or dangerous input before any external
// call is made.
type ValidationError struct {
	Issues   []validation.Issue
	Warnings []string
	Err      error
}

func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		codes = append(codes, i.Code)
	}
	return "validation failed: " + strings.Join(codes, ", ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Codes returns the issue codes in order.
func (e *ValidationError) Codes() []string {
	out := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		out[i] = iss.Code
	}
	return out
}

// SecretRejection is returned when content holds a critical secret. No
// external call has been made.
type SecretRejection struct {
	Resource      string
	Stage         string
	CriticalFound int
	Types         []string
}

func (e *SecretRejection) Error() string {
	return fmt.Sprintf("%s rejected at %s: %d critical secret(s) detected", e.Resource, e.Stage, e.CriticalFound)
}

// SecurityException means generated output failed validation. The draft
// went to the quarantine queue instead of the caller.
type SecurityException struct {
	DraftID string
	Issues  []string
	Leak    bool
	// QuarantineErr is set when the draft could not be stored.
	QuarantineErr error
}

func (e *SecurityException) Error() string {
	return fmt.Sprintf("generated output failed validation (%s); draft %s held for manual review",
		strings.Join(e.Issues, ", "), e.DraftID)
}

// CircuitOpenError means a dependency is failing fast. Callers should retry later.
type CircuitOpenError struct {
	Dependency string
	Err        error
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable, retry later", e.Dependency)
}

func (e *CircuitOpenError) Unwrap() error { return e.Err }

// AuthorizationDenied is returned by every failed permission check.
type AuthorizationDenied struct {
	UserID     string
	Permission string
	Resource   string
	Reason     string
}

func (e *AuthorizationDenied) Error() string {
	return fmt.Sprintf("user %q is not allowed to %s %s: %s", e.UserID, e.Permission, e.Resource, e.Reason)
}

// InsufficientApprovals blocks publication below the approval threshold.
type InsufficientApprovals struct {
	SummaryID string
	Have      int
	Need      int
}

func (e *InsufficientApprovals) Error() string {
	return fmt.Sprintf("summary %s has %d of %d required approvals", e.SummaryID, e.Have, e.Need)
}
