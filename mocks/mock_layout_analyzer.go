package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

// MockLayoutAnalyzer is a mock implementation of port.LayoutAnalyzer.
type MockLayoutAnalyzer struct {
	mock.Mock
}

func (m *MockLayoutAnalyzer) Analyze(ctx context.Context, doc port.DocumentInput) ([]domain.PageContent, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PageContent), args.Error(1)
}
