package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docgate/internal/model"
)

// SecurityEventPostgres appends audit events to security_events. The table
// rejects UPDATE and DELETE through a trigger, so there is no method for either.
type SecurityEventPostgres struct {
	db *sql.DB
}

// NewSecurityEventPostgres creates a new SecurityEventPostgres sink.
func NewSecurityEventPostgres(db *sql.DB) *SecurityEventPostgres {
	return &SecurityEventPostgres{db: db}
}

// Append inserts one event.
func (r *SecurityEventPostgres) Append(ctx context.Context, ev model.SecurityEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}
	const q = `
		INSERT INTO security_events (id, occurred_at, event_type, severity, user_id, username, resource, action, outcome, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, q,
		ev.ID,
		ev.Timestamp,
		string(ev.EventType),
		string(ev.Severity),
		ev.UserID,
		ev.Username,
		ev.Resource,
		ev.Action,
		string(ev.Outcome),
		details,
	)
	return err
}
