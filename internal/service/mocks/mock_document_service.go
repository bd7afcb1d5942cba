package mocks

import (
	"context"
	"io"

	"docgate/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, userID, docPath string, r io.Reader, contentType string, size int64) (*service.DocumentInfo, error) {
	args := m.Called(ctx, userID, docPath, r, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentInfo), args.Error(1)
}

func (m *MockDocumentService) Stat(ctx context.Context, userID, docPath string) (*service.DocumentInfo, error) {
	args := m.Called(ctx, userID, docPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentInfo), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, userID, dir string, limit int) ([]service.DocumentInfo, error) {
	args := m.Called(ctx, userID, dir, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DocumentInfo), args.Error(1)
}
