package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docgate/internal/database"
	"docgate/internal/model"
	"docgate/internal/repository"
)

// ApprovalPostgres is a PostgreSQL implementation of repository.ApprovalRepository.
// approvals is append-only; state changes land in approval_records in the
// same transaction as the history row.
type ApprovalPostgres struct {
	db *sql.DB
}

// NewApprovalPostgres creates a new ApprovalPostgres repository.
func NewApprovalPostgres(db *sql.DB) *ApprovalPostgres {
	return &ApprovalPostgres{db: db}
}

var _ repository.ApprovalRepository = (*ApprovalPostgres)(nil)

// CreateRecord inserts a new approval record.
func (r *ApprovalPostgres) CreateRecord(ctx context.Context, rec *model.ApprovalRecord) error {
	const q = `
		INSERT INTO approval_records (summary_id, content, format, audience, requested_by, current_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (summary_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		rec.SummaryID,
		rec.Content,
		rec.Format,
		rec.Audience,
		rec.RequestedBy,
		string(rec.CurrentState),
		rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("approval record %s: %w", rec.SummaryID, repository.ErrAlreadyExists)
	}
	return nil
}

// FindRecord fetches a record by summary ID.
func (r *ApprovalPostgres) FindRecord(ctx context.Context, summaryID string) (*model.ApprovalRecord, error) {
	const q = `
		SELECT summary_id, content, format, audience, requested_by, current_state, created_at
		FROM approval_records
		WHERE summary_id = $1
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, summaryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval record %s: %w", summaryID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendApproval records a and moves the record to a.State atomically. With
// a non-empty from the UPDATE only matches a record still in that state.
func (r *ApprovalPostgres) AppendApproval(ctx context.Context, a *model.Approval, from model.ApprovalState) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode approval metadata: %w", err)
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const qUpdate = `
			UPDATE approval_records SET current_state = $2
			WHERE summary_id = $1 AND ($3 = '' OR current_state = $3)
		`
		res, err := tx.ExecContext(ctx, qUpdate, a.SummaryID, string(a.State), string(from))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return missOrConflict(ctx, tx, a.SummaryID, from)
		}

		const qInsert = `
			INSERT INTO approvals (summary_id, state, approved_by, approved_by_username, notes, metadata, approved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err = tx.ExecContext(ctx, qInsert,
			a.SummaryID,
			string(a.State),
			a.ApprovedBy,
			a.ApprovedByUsername,
			a.Notes,
			meta,
			a.ApprovedAt,
		)
		return err
	})
}

// ListApprovals returns the history of a summary, oldest first.
func (r *ApprovalPostgres) ListApprovals(ctx context.Context, summaryID string) ([]model.Approval, error) {
	const q = `
		SELECT summary_id, state, approved_by, approved_by_username, notes, metadata, approved_at
		FROM approvals
		WHERE summary_id = $1
		ORDER BY approved_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, summaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Approval, 0)
	for rows.Next() {
		var (
			a     model.Approval
			state string
			meta  []byte
		)
		if err := rows.Scan(
			&a.SummaryID,
			&state,
			&a.ApprovedBy,
			&a.ApprovedByUsername,
			&a.Notes,
			&meta,
			&a.ApprovedAt,
		); err != nil {
			return nil, err
		}
		a.State = model.ApprovalState(state)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode approval metadata: %w", err)
			}
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByState returns records in state, oldest first. A zero limit means no limit.
func (r *ApprovalPostgres) ListByState(ctx context.Context, state model.ApprovalState, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	const qCount = `SELECT COUNT(*) FROM approval_records WHERE current_state = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, string(state)).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT summary_id, content, format, audience, requested_by, current_state, created_at
		FROM approval_records
		WHERE current_state = $1
		ORDER BY created_at ASC, summary_id ASC
		LIMIT NULLIF($2, 0) OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, string(state), pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ApprovalRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.ApprovalRecord]{
		Items: items,
		Total: total,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ApprovalRecord, error) {
	var (
		rec   model.ApprovalRecord
		state string
	)
	if err := row.Scan(
		&rec.SummaryID,
		&rec.Content,
		&rec.Format,
		&rec.Audience,
		&rec.RequestedBy,
		&state,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.CurrentState = model.ApprovalState(state)
	return &rec, nil
}

// missOrConflict explains an UPDATE that matched no row.
func missOrConflict(ctx context.Context, tx *sql.Tx, summaryID string, from model.ApprovalState) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT current_state FROM approval_records WHERE summary_id = $1`, summaryID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("approval record %s: %w", summaryID, repository.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("approval record %s is %s, expected %s: %w", summaryID, current, from, repository.ErrStateConflict)
}
