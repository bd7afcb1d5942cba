package audit

import (
	"context"

	"docgate/internal/model"
)

func (l *Logger) emit(ctx context.Context, t model.EventType, outcome model.Outcome, userID, resource, action string, details map[string]any) {
	l.Log(ctx, model.SecurityEvent{
		EventType: t,
		UserID:    userID,
		Resource:  resource,
		Action:    action,
		Outcome:   outcome,
		Details:   details,
	})
}

// AuthSuccess records a successful authentication.
func (l *Logger) AuthSuccess(ctx context.Context, userID, username, method string) {
	l.Log(ctx, model.SecurityEvent{
		EventType: model.EventAuthSuccess,
		UserID:    userID,
		Username:  username,
		Action:    "authenticate",
		Outcome:   model.OutcomeSuccess,
		Details:   map[string]any{"method": method},
	})
}

// AuthFailure records a failed authentication attempt.
func (l *Logger) AuthFailure(ctx context.Context, userID, reason string) {
	l.emit(ctx, model.EventAuthFailure, model.OutcomeFailure, userID, "", "authenticate", map[string]any{"reason": reason})
}

// Unauthorized records access to a resource without valid credentials.
func (l *Logger) Unauthorized(ctx context.Context, userID, resource, action string) {
	l.emit(ctx, model.EventAuthUnauthorized, model.OutcomeBlocked, userID, resource, action, nil)
}

// PermissionGranted records a positive authorization decision.
func (l *Logger) PermissionGranted(ctx context.Context, userID, permission, resource string) {
	l.emit(ctx, model.EventPermissionGranted, model.OutcomeSuccess, userID, resource, permission, nil)
}

// PermissionDenied records a negative authorization decision.
func (l *Logger) PermissionDenied(ctx context.Context, userID, permission, resource, reason string) {
	l.emit(ctx, model.EventPermissionDenied, model.OutcomeBlocked, userID, resource, permission, map[string]any{"reason": reason})
}

// CommandInvoked records a user command.
func (l *Logger) CommandInvoked(ctx context.Context, userID, command string, args []string) {
	l.emit(ctx, model.EventCommandInvoked, model.OutcomeSuccess, userID, "", command, map[string]any{"args": args})
}

// CommandBlocked records a command rejected before execution.
func (l *Logger) CommandBlocked(ctx context.Context, userID, command, reason string) {
	l.emit(ctx, model.EventCommandBlocked, model.OutcomeBlocked, userID, "", command, map[string]any{"reason": reason})
}

// CommandFailed records a command that failed while executing.
func (l *Logger) CommandFailed(ctx context.Context, userID, command string, err error) {
	l.emit(ctx, model.EventCommandFailed, model.OutcomeFailure, userID, "", command, map[string]any{"error": err})
}

// TranslationRequested records a new generate request.
func (l *Logger) TranslationRequested(ctx context.Context, userID string, documents []string, format, audience string) {
	l.emit(ctx, model.EventTranslationRequested, model.OutcomePending, userID, "", "generate", map[string]any{
		"documents": documents,
		"format":    format,
		"audience":  audience,
	})
}

// TranslationGenerated records a draft entering review.
func (l *Logger) TranslationGenerated(ctx context.Context, userID, summaryID, format string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["format"] = format
	l.emit(ctx, model.EventTranslationGenerated, model.OutcomePending, userID, summaryID, "generate", details)
}

// TranslationApproved records an approval on a summary.
func (l *Logger) TranslationApproved(ctx context.Context, userID, username, summaryID, notes string) {
	l.Log(ctx, model.SecurityEvent{
		EventType: model.EventTranslationApproved,
		UserID:    userID,
		Username:  username,
		Resource:  summaryID,
		Action:    "approve",
		Outcome:   model.OutcomeSuccess,
		Details:   map[string]any{"notes": notes},
	})
}

// TranslationRejected records a rejection on a summary.
func (l *Logger) TranslationRejected(ctx context.Context, userID, username, summaryID, notes string) {
	l.Log(ctx, model.SecurityEvent{
		EventType: model.EventTranslationRejected,
		UserID:    userID,
		Username:  username,
		Resource:  summaryID,
		Action:    "reject",
		Outcome:   model.OutcomeSuccess,
		Details:   map[string]any{"notes": notes},
	})
}

// TranslationPublished records a summary leaving the approval gate.
func (l *Logger) TranslationPublished(ctx context.Context, userID, username, summaryID, location string) {
	l.Log(ctx, model.SecurityEvent{
		EventType: model.EventTranslationPublished,
		UserID:    userID,
		Username:  username,
		Resource:  summaryID,
		Action:    "publish",
		Outcome:   model.OutcomeSuccess,
		Details:   map[string]any{"location": location},
	})
}

// SecretDetected records a scan that found secrets. Critical findings make
// the event CRITICAL; blocked reports whether the request was stopped.
func (l *Logger) SecretDetected(ctx context.Context, userID, resource string, res model.ScanResult, blocked bool) {
	sev := model.EventSeverityHigh
	if res.CriticalFound > 0 {
		sev = model.EventSeverityCritical
	}
	outcome := model.OutcomeSuccess
	if blocked {
		outcome = model.OutcomeBlocked
	}
	l.Log(ctx, model.SecurityEvent{
		EventType: model.EventSecretDetected,
		Severity:  sev,
		UserID:    userID,
		Resource:  resource,
		Action:    "scan",
		Outcome:   outcome,
		Details:   findingDetails(res),
	})
}

// LeakDetected records secrets found in generated output.
func (l *Logger) LeakDetected(ctx context.Context, userID, resource string, res model.ScanResult) {
	l.emit(ctx, model.EventLeakDetected, model.OutcomeBlocked, userID, resource, "validate_output", findingDetails(res))
}

// ServicePaused records the generation service pausing itself after a leak.
func (l *Logger) ServicePaused(ctx context.Context, reason string) {
	l.emit(ctx, model.EventServicePausedLeak, model.OutcomeBlocked, "", "translation_service", "pause", map[string]any{"reason": reason})
}

// DocumentAccessed records a document read.
func (l *Logger) DocumentAccessed(ctx context.Context, userID, path string) {
	l.emit(ctx, model.EventDocumentAccessed, model.OutcomeSuccess, userID, path, "read", nil)
}

// DocumentRejectedSize records a document or batch exceeding size limits.
func (l *Logger) DocumentRejectedSize(ctx context.Context, userID, resource, limit string, actual, max int64) {
	l.emit(ctx, model.EventDocumentRejectedSize, model.OutcomeBlocked, userID, resource, "read", map[string]any{
		"limit":  limit,
		"actual": actual,
		"max":    max,
	})
}

// ConfigRead records configuration being loaded.
func (l *Logger) ConfigRead(ctx context.Context, userID, key string) {
	l.emit(ctx, model.EventConfigRead, model.OutcomeSuccess, userID, key, "read", nil)
}

// ConfigModified records a configuration change. Always HIGH severity.
func (l *Logger) ConfigModified(ctx context.Context, userID, key string, oldValue, newValue any) {
	l.emit(ctx, model.EventConfigModified, model.OutcomeSuccess, userID, key, "modify", map[string]any{
		"old_value": oldValue,
		"new_value": newValue,
	})
}

// RateLimitExceeded records a session or user exceeding its action budget.
func (l *Logger) RateLimitExceeded(ctx context.Context, userID, resource string, limit int) {
	l.emit(ctx, model.EventRateLimitExceeded, model.OutcomeBlocked, userID, resource, "record_action", map[string]any{"limit": limit})
}

// SystemStartup records process start.
func (l *Logger) SystemStartup(ctx context.Context, version string) {
	l.emit(ctx, model.EventSystemStartup, model.OutcomeSuccess, "", "system", "startup", map[string]any{"version": version})
}

// SystemShutdown records process stop.
func (l *Logger) SystemShutdown(ctx context.Context, reason string) {
	l.emit(ctx, model.EventSystemShutdown, model.OutcomeSuccess, "", "system", "shutdown", map[string]any{"reason": reason})
}

// SecurityException records a security control stopping a request.
func (l *Logger) SecurityException(ctx context.Context, userID, resource string, err error, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["error"] = err
	l.emit(ctx, model.EventSecurityException, model.OutcomeBlocked, userID, resource, "validate", details)
}

// CircuitOpened records a dependency breaker tripping.
func (l *Logger) CircuitOpened(ctx context.Context, dependency string) {
	l.emit(ctx, model.EventCircuitOpened, model.OutcomeFailure, "", dependency, "trip", nil)
}

// findingDetails summarizes a scan without raw values.
func findingDetails(res model.ScanResult) map[string]any {
	findings := make([]any, 0, len(res.Findings))
	for _, f := range res.Findings {
		findings = append(findings, map[string]any{
			"type":     f.Type,
			"severity": string(f.Severity),
			"location": f.Location,
		})
	}
	return map[string]any{
		"total_found":    res.TotalFound,
		"critical_found": res.CriticalFound,
		"types":          res.Types(),
		"findings":       findings,
	}
}
