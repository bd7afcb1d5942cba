package model

import "time"

// EventType is the fixed security event taxonomy.
type EventType string

const (
	EventAuthSuccess          EventType = "AUTH_SUCCESS"
	EventAuthFailure          EventType = "AUTH_FAILURE"
	EventAuthUnauthorized     EventType = "AUTH_UNAUTHORIZED"
	EventPermissionGranted    EventType = "PERMISSION_GRANTED"
	EventPermissionDenied     EventType = "PERMISSION_DENIED"
	EventCommandInvoked       EventType = "COMMAND_INVOKED"
	EventCommandBlocked       EventType = "COMMAND_BLOCKED"
	EventCommandFailed        EventType = "COMMAND_FAILED"
	EventTranslationRequested EventType = "TRANSLATION_REQUESTED"
	EventTranslationGenerated EventType = "TRANSLATION_GENERATED"
	EventTranslationApproved  EventType = "TRANSLATION_APPROVED"
	EventTranslationRejected  EventType = "TRANSLATION_REJECTED"
	EventTranslationPublished EventType = "TRANSLATION_PUBLISHED"
	EventSecretDetected       EventType = "SECRET_DETECTED"
	EventLeakDetected         EventType = "LEAK_DETECTED"
	EventServicePausedLeak    EventType = "SERVICE_PAUSED_LEAK"
	EventDocumentAccessed     EventType = "DOCUMENT_ACCESSED"
	EventDocumentRejectedSize EventType = "DOCUMENT_REJECTED_SIZE"
	EventConfigRead           EventType = "CONFIG_READ"
	EventConfigModified       EventType = "CONFIG_MODIFIED"
	EventRateLimitExceeded    EventType = "RATE_LIMIT_EXCEEDED"
	EventSystemStartup        EventType = "SYSTEM_STARTUP"
	EventSystemShutdown       EventType = "SYSTEM_SHUTDOWN"
	EventSecurityException    EventType = "SECURITY_EXCEPTION"
	EventCircuitOpened        EventType = "CIRCUIT_OPENED"
)

// EventSeverity orders security events from INFO to CRITICAL.
type EventSeverity string

const (
	EventSeverityInfo     EventSeverity = "INFO"
	EventSeverityLow      EventSeverity = "LOW"
	EventSeverityMedium   EventSeverity = "MEDIUM"
	EventSeverityHigh     EventSeverity = "HIGH"
	EventSeverityCritical EventSeverity = "CRITICAL"
)

// Outcome is the result recorded on a security event.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeBlocked Outcome = "BLOCKED"
	OutcomePending Outcome = "PENDING"
)

// SecurityEvent is one append-only audit record. Details is sanitized
// before the event reaches any sink.
type SecurityEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	Severity  EventSeverity  `json:"severity"`
	UserID    string         `json:"user_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Action    string         `json:"action"`
	Outcome   Outcome        `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
}
