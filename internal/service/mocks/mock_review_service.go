package mocks

import (
	"context"

	"docgate/internal/model"
	"docgate/internal/repository"
	"docgate/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Get(ctx context.Context, summaryID string) (*service.SummaryView, error) {
	args := m.Called(ctx, summaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SummaryView), args.Error(1)
}

func (m *MockReviewService) ListPending(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ApprovalRecord]), args.Error(1)
}

func (m *MockReviewService) Approve(ctx context.Context, actor service.Actor, summaryID, notes string) (*model.Approval, error) {
	args := m.Called(ctx, actor, summaryID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Approval), args.Error(1)
}

func (m *MockReviewService) Reject(ctx context.Context, actor service.Actor, summaryID, notes string) (*model.Approval, error) {
	args := m.Called(ctx, actor, summaryID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Approval), args.Error(1)
}

func (m *MockReviewService) Publish(ctx context.Context, actor service.Actor, summaryID string) (*service.PublishResult, error) {
	args := m.Called(ctx, actor, summaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PublishResult), args.Error(1)
}
