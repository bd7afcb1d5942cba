package mocks

import (
	"context"

	"docgate/internal/model"
	"docgate/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockQuarantineRepository struct {
	mock.Mock
}

func (m *MockQuarantineRepository) Add(ctx context.Context, d *model.QuarantinedDraft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockQuarantineRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.QuarantinedDraft], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.QuarantinedDraft]), args.Error(1)
}
