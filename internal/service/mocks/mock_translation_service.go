package mocks

import (
	"context"

	"docgate/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockTranslationService struct {
	mock.Mock
}

func (m *MockTranslationService) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GenerateResult), args.Error(1)
}

func (m *MockTranslationService) Paused() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockTranslationService) Resume(ctx context.Context, operatorID string) bool {
	args := m.Called(ctx, operatorID)
	return args.Bool(0)
}
