package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docgate/internal/model"
	"docgate/internal/repository"
)

// QuarantinePostgres is a PostgreSQL implementation of repository.QuarantineRepository.
type QuarantinePostgres struct {
	db *sql.DB
}

// NewQuarantinePostgres creates a new QuarantinePostgres repository.
func NewQuarantinePostgres(db *sql.DB) *QuarantinePostgres {
	return &QuarantinePostgres{db: db}
}

var _ repository.QuarantineRepository = (*QuarantinePostgres)(nil)

// Add stores a quarantined draft.
func (r *QuarantinePostgres) Add(ctx context.Context, d *model.QuarantinedDraft) error {
	issues, err := json.Marshal(d.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	const q = `
		INSERT INTO quarantined_drafts (id, requested_by, format, audience, content, issues, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, q,
		d.ID,
		d.RequestedBy,
		d.Format,
		d.Audience,
		d.Content,
		issues,
		d.CreatedAt,
	)
	return err
}

// List returns drafts oldest first. A zero limit means no limit.
func (r *QuarantinePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.QuarantinedDraft], error) {
	const qCount = `SELECT COUNT(*) FROM quarantined_drafts`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, requested_by, format, audience, content, issues, created_at
		FROM quarantined_drafts
		ORDER BY created_at ASC, id ASC
		LIMIT NULLIF($1, 0) OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.QuarantinedDraft, 0)
	for rows.Next() {
		var (
			d      model.QuarantinedDraft
			issues []byte
		)
		if err := rows.Scan(
			&d.ID,
			&d.RequestedBy,
			&d.Format,
			&d.Audience,
			&d.Content,
			&issues,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(issues) > 0 {
			if err := json.Unmarshal(issues, &d.Issues); err != nil {
				return nil, fmt.Errorf("decode issues: %w", err)
			}
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.QuarantinedDraft]{
		Items: items,
		Total: total,
	}, nil
}
