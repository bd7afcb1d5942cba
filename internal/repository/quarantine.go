package repository

import (
	"context"

	"docgate/internal/model"
)

// QuarantineRepository holds drafts that failed output validation until a
// human looks at them.
type QuarantineRepository interface {
	Add(ctx context.Context, d *model.QuarantinedDraft) error
	List(ctx context.Context, pq PageQuery) (*PageResult[model.QuarantinedDraft], error)
}
