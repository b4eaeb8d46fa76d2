package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a new PostgreSQL-backed JobRepository.
func NewJobRepo(db *sqlx.DB) port.JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `INSERT INTO extraction_jobs (
		id, user_id, file_name, content_type, file_size, s3_bucket, s3_key,
		status, attempts, invoice_count, error, retry_after, completed_at,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12, $13,
		$14, $15
	)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.UserID, job.FileName, job.ContentType, job.FileSize, job.S3Bucket, job.S3Key,
		job.Status, job.Attempts, job.InvoiceCount, job.Error, job.RetryAfter, job.CompletedAt,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.ExtractionJob, error) {
	var job domain.ExtractionJob
	err := r.db.GetContext(ctx, &job,
		"SELECT * FROM extraction_jobs WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("jobRepo.GetByID: %w", err)
	}
	return &job, nil
}

// ClaimQueued locks due jobs with SKIP LOCKED so concurrent workers never
// claim the same job, and counts the attempt as part of the claim.
func (r *jobRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	var jobs []domain.ExtractionJob
	err := r.db.SelectContext(ctx, &jobs,
		`UPDATE extraction_jobs
		 SET status = $1, attempts = attempts + 1, updated_at = NOW()
		 WHERE id IN (
			SELECT id FROM extraction_jobs
			WHERE status = $2 AND (retry_after IS NULL OR retry_after <= NOW())
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.JobStatusProcessing, domain.JobStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ClaimQueued: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) Complete(ctx context.Context, id uuid.UUID, invoiceCount int) error {
	return r.update(ctx, "jobRepo.Complete",
		`UPDATE extraction_jobs
		 SET status = $2, invoice_count = $3, error = '', retry_after = NULL,
		     completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1`,
		id, domain.JobStatusCompleted, invoiceCount)
}

func (r *jobRepo) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, "jobRepo.Fail",
		`UPDATE extraction_jobs
		 SET status = $2, error = $3, retry_after = NULL, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1`,
		id, domain.JobStatusFailed, reason)
}

func (r *jobRepo) Requeue(ctx context.Context, id uuid.UUID, retryAfter time.Time, reason string) error {
	return r.update(ctx, "jobRepo.Requeue",
		`UPDATE extraction_jobs
		 SET status = $2, retry_after = $3, error = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, domain.JobStatusQueued, retryAfter.UTC(), reason)
}

func (r *jobRepo) update(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
