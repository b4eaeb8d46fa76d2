package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"invoxtract/internal/domain"
)

// InvoiceRepository persists finalized invoices keyed by the uploading user.
// All query methods include userID so one caller never sees another's invoices.
type InvoiceRepository interface {
	CreateBatch(ctx context.Context, userID string, jobID *uuid.UUID, invoices []domain.Invoice) ([]domain.StoredInvoice, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error)
	ListAllByUser(ctx context.Context, userID string) ([]domain.StoredInvoice, error)
}

// JobRepository persists asynchronous extraction jobs.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.ExtractionJob, error)
	// ClaimQueued atomically moves up to limit due jobs to processing and returns them.
	ClaimQueued(ctx context.Context, limit int) ([]domain.ExtractionJob, error)
	Complete(ctx context.Context, id uuid.UUID, invoiceCount int) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
	Requeue(ctx context.Context, id uuid.UUID, retryAfter time.Time, reason string) error
}
