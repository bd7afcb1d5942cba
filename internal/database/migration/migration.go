package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the first table step; its presence means the
// schema is in place.
const sentinelTable = "public.approval_records"

var steps = []migrationStep{
	{
		Name: "create_table_approval_records",
		SQL: `CREATE TABLE IF NOT EXISTS approval_records (
  summary_id    TEXT        PRIMARY KEY,
  content       TEXT        NOT NULL,
  format        TEXT        NOT NULL,
  audience      TEXT        NOT NULL,
  requested_by  TEXT        NOT NULL,
  current_state TEXT        NOT NULL CHECK (current_state IN ('PENDING_REVIEW', 'APPROVED', 'REJECTED', 'PUBLISHED')),
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_approval_records_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_approval_records_state_created ON approval_records (current_state, created_at);`,
	},
	{
		Name: "create_table_approvals",
		SQL: `CREATE TABLE IF NOT EXISTS approvals (
  id                   BIGSERIAL   PRIMARY KEY,
  summary_id           TEXT        NOT NULL REFERENCES approval_records (summary_id),
  state                TEXT        NOT NULL,
  approved_by          TEXT        NOT NULL,
  approved_by_username TEXT        NOT NULL DEFAULT '',
  notes                TEXT        NOT NULL DEFAULT '',
  metadata             JSONB       NOT NULL DEFAULT '{}'::jsonb,
  approved_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_approvals_summary",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_approvals_summary_id ON approvals (summary_id, approved_at);`,
	},
	{
		Name: "create_table_security_events",
		SQL: `CREATE TABLE IF NOT EXISTS security_events (
  id          UUID        PRIMARY KEY,
  occurred_at TIMESTAMPTZ NOT NULL,
  event_type  TEXT        NOT NULL,
  severity    TEXT        NOT NULL,
  user_id     TEXT        NOT NULL DEFAULT '',
  username    TEXT        NOT NULL DEFAULT '',
  resource    TEXT        NOT NULL DEFAULT '',
  action      TEXT        NOT NULL,
  outcome     TEXT        NOT NULL,
  details     JSONB       NOT NULL DEFAULT '{}'::jsonb
);`,
	},
	{
		Name: "create_index_security_events_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_security_events_type_time ON security_events (event_type, occurred_at);`,
	},
	{
		Name: "create_function_security_events_append_only",
		SQL: `CREATE OR REPLACE FUNCTION security_events_append_only() RETURNS trigger AS $$
BEGIN
  RAISE EXCEPTION 'security_events is append-only';
END;
$$ LANGUAGE plpgsql;`,
	},
	{
		Name: "create_trigger_security_events_append_only",
		SQL: `DROP TRIGGER IF EXISTS trg_security_events_append_only ON security_events;
CREATE TRIGGER trg_security_events_append_only
  BEFORE UPDATE OR DELETE ON security_events
  FOR EACH ROW EXECUTE FUNCTION security_events_append_only();`,
	},
	{
		Name: "create_table_quarantined_drafts",
		SQL: `CREATE TABLE IF NOT EXISTS quarantined_drafts (
  id           TEXT        PRIMARY KEY,
  requested_by TEXT        NOT NULL,
  format       TEXT        NOT NULL,
  audience     TEXT        NOT NULL,
  content      TEXT        NOT NULL,
  issues       JSONB       NOT NULL DEFAULT '[]'::jsonb,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureMigrated runs every step when the sentinel table is missing. Steps
// are idempotent, so a run interrupted halfway can simply be repeated.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	start := time.Now()

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip", zap.Duration("duration", time.Since(start)))
		return nil
	}

	log.Info("db_migration_start", zap.Int("steps", len(steps)))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success", zap.Duration("duration", time.Since(start)))
	return nil
}
