package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invoxtract/internal/domain"
)

// MockInvoiceRepo is a mock implementation of port.InvoiceRepository.
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) CreateBatch(ctx context.Context, userID string, jobID *uuid.UUID, invoices []domain.Invoice) ([]domain.StoredInvoice, error) {
	args := m.Called(ctx, userID, jobID, invoices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredInvoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredInvoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.StoredInvoice), args.Int(1), args.Error(2)
}

func (m *MockInvoiceRepo) ListAllByUser(ctx context.Context, userID string) ([]domain.StoredInvoice, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredInvoice), args.Error(1)
}
