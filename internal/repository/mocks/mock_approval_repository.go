package mocks

import (
	"context"

	"docgate/internal/model"
	"docgate/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) CreateRecord(ctx context.Context, rec *model.ApprovalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockApprovalRepository) FindRecord(ctx context.Context, summaryID string) (*model.ApprovalRecord, error) {
	args := m.Called(ctx, summaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRepository) AppendApproval(ctx context.Context, a *model.Approval, from model.ApprovalState) error {
	args := m.Called(ctx, a, from)
	return args.Error(0)
}

func (m *MockApprovalRepository) ListApprovals(ctx context.Context, summaryID string) ([]model.Approval, error) {
	args := m.Called(ctx, summaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Approval), args.Error(1)
}

func (m *MockApprovalRepository) ListByState(ctx context.Context, state model.ApprovalState, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	args := m.Called(ctx, state, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ApprovalRecord]), args.Error(1)
}
