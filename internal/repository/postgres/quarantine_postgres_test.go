package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/model"
	"docgate/internal/repository"
)

func TestQuarantinePostgres_AddAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewQuarantinePostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO quarantined_drafts").
		WithArgs("q-1", "alice", "executive", "Board", "draft", []byte(`["LEAK: STRIPE_LIVE_SECRET_KEY"]`), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Add(ctx, &model.QuarantinedDraft{
		ID:          "q-1",
		RequestedBy: "alice",
		Format:      "executive",
		Audience:    "Board",
		Content:     "draft",
		Issues:      []string{"LEAK: STRIPE_LIVE_SECRET_KEY"},
		CreatedAt:   now,
	}))

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM quarantined_drafts").
		WithArgs(0, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_by", "format", "audience", "content", "issues", "created_at"}).
			AddRow("q-1", "alice", "executive", "Board", "draft", []byte(`["LEAK: STRIPE_LIVE_SECRET_KEY"]`), now))

	res, err := repo.List(ctx, repository.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []string{"LEAK: STRIPE_LIVE_SECRET_KEY"}, res.Items[0].Issues)
	assert.NoError(t, mock.ExpectationsWereMet())
}
