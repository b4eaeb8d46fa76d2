package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invoxtract/internal/domain"
	"invoxtract/internal/service"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Process(ctx context.Context, input service.UploadInput) (*service.ProcessResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockInvoiceService) Submit(ctx context.Context, input service.UploadInput) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockInvoiceService) RunJob(ctx context.Context, job *domain.ExtractionJob, maxAttempts int) {
	m.Called(ctx, job, maxAttempts)
}

func (m *MockInvoiceService) GetJob(ctx context.Context, userID string, id uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredInvoice), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.StoredInvoice), args.Int(1), args.Error(2)
}

func (m *MockInvoiceService) Export(ctx context.Context, userID string, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, userID, format, w)
	return args.Error(0)
}
