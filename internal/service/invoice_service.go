package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoxtract/internal/config"
	"invoxtract/internal/domain"
	"invoxtract/internal/export"
	"invoxtract/internal/extractor"
	"invoxtract/internal/pipeline"
	"invoxtract/internal/port"
)

// ProcessResult is the outcome of a synchronous extraction.
type ProcessResult struct {
	InvoiceNumbers []string                      `json:"invoice_numbers"`
	Invoices       []domain.StoredInvoice        `json:"invoices"`
	Pages          int                           `json:"pages"`
	ChunkOutcomes  map[pipeline.ChunkOutcome]int `json:"chunk_outcomes"`
}

// InvoiceService defines the invoice extraction contract.
type InvoiceService interface {
	Process(ctx context.Context, input UploadInput) (*ProcessResult, error)
	Submit(ctx context.Context, input UploadInput) (*domain.ExtractionJob, error)
	RunJob(ctx context.Context, job *domain.ExtractionJob, maxAttempts int)
	GetJob(ctx context.Context, userID string, id uuid.UUID) (*domain.ExtractionJob, error)
	GetInvoice(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error)
	ListInvoices(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error)
	Export(ctx context.Context, userID string, format domain.ExportFormat, w io.Writer) error
}

type invoiceService struct {
	driver      *pipeline.Driver
	analyzer    port.LayoutAnalyzer
	invoiceRepo port.InvoiceRepository
	jobRepo     port.JobRepository
	storage     port.ObjectStorage
	s3Cfg       config.S3Config
	uploadCfg   config.UploadConfig
}

// NewInvoiceService creates a new InvoiceService. storage may be nil, in which
// case asynchronous submission is disabled.
func NewInvoiceService(
	driver *pipeline.Driver,
	analyzer port.LayoutAnalyzer,
	invoiceRepo port.InvoiceRepository,
	jobRepo port.JobRepository,
	storage port.ObjectStorage,
	s3Cfg config.S3Config,
	uploadCfg config.UploadConfig,
) InvoiceService {
	return &invoiceService{
		driver:      driver,
		analyzer:    analyzer,
		invoiceRepo: invoiceRepo,
		jobRepo:     jobRepo,
		storage:     storage,
		s3Cfg:       s3Cfg,
		uploadCfg:   uploadCfg,
	}
}

func (s *invoiceService) Process(ctx context.Context, input UploadInput) (*ProcessResult, error) {
	file, err := spool(input, s.uploadCfg.TempDir, s.uploadCfg.MaxFileSizeBytes())
	if err != nil {
		return nil, err
	}
	defer file.remove()

	log.Printf("invoiceService.Process: extracting %s (%s, %d bytes) for user %s",
		input.FileName, file.ContentType, file.Size, input.UserID)

	res := s.driver.Process(ctx, s.analyzer, port.DocumentInput{
		Path:        file.Path,
		ContentType: file.ContentType,
		FileName:    input.FileName,
	})
	if res.Err != nil {
		return nil, fmt.Errorf("invoiceService.Process: %w", res.Err)
	}

	out := &ProcessResult{
		InvoiceNumbers: []string{},
		Invoices:       []domain.StoredInvoice{},
		Pages:          len(res.Pages),
		ChunkOutcomes:  res.Counts(),
	}
	if len(res.Invoices) == 0 {
		log.Printf("invoiceService.Process: no invoices parsed from %s", input.FileName)
		return out, nil
	}

	stored, err := s.invoiceRepo.CreateBatch(ctx, input.UserID, nil, res.Invoices)
	if err != nil {
		return nil, fmt.Errorf("invoiceService.Process: saving invoices: %w", err)
	}
	out.Invoices = stored
	for _, inv := range res.Invoices {
		out.InvoiceNumbers = append(out.InvoiceNumbers, inv.InvoiceNumber)
	}
	return out, nil
}

func (s *invoiceService) Submit(ctx context.Context, input UploadInput) (*domain.ExtractionJob, error) {
	if s.storage == nil || !s.s3Cfg.Enabled() {
		return nil, domain.ErrStorageDisabled
	}

	file, err := spool(input, s.uploadCfg.TempDir, s.uploadCfg.MaxFileSizeBytes())
	if err != nil {
		return nil, err
	}
	defer file.remove()

	jobID := uuid.New()
	job := &domain.ExtractionJob{
		ID:          jobID,
		UserID:      input.UserID,
		FileName:    filepath.Base(input.FileName),
		ContentType: file.ContentType,
		FileSize:    file.Size,
		S3Bucket:    s.s3Cfg.Bucket,
		S3Key:       archiveKey(input.UserID, jobID.String(), input.FileName),
		Status:      domain.JobStatusQueued,
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("invoiceService.Submit: %w", err)
	}
	defer f.Close()

	log.Printf("invoiceService.Submit: archiving %s to %s for user %s", input.FileName, job.S3Key, input.UserID)
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      job.S3Bucket,
		Key:         job.S3Key,
		Body:        f,
		ContentType: job.ContentType,
		Size:        job.FileSize,
	})
	if err != nil {
		log.Printf("invoiceService.Submit: upload failed for job %s: %v", job.ID, err)
		return nil, domain.ErrUploadFailed
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		if delErr := s.storage.Delete(ctx, job.S3Bucket, job.S3Key); delErr != nil {
			log.Printf("invoiceService.Submit: failed to remove orphaned upload %s: %v", job.S3Key, delErr)
		}
		return nil, fmt.Errorf("invoiceService.Submit: creating job: %w", err)
	}
	return job, nil
}

// RunJob extracts a claimed job. A rate-limited run is requeued until
// maxAttempts is reached; any other failure, or a document with no
// invoices, fails the job.
func (s *invoiceService) RunJob(ctx context.Context, job *domain.ExtractionJob, maxAttempts int) {
	if s.storage == nil {
		s.failJob(ctx, job, domain.ErrStorageDisabled.Error())
		return
	}

	data, err := s.storage.Download(ctx, job.S3Bucket, job.S3Key)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("downloading document: %v", err))
		return
	}

	_, ext, err := fileTypeFromName(job.FileName)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return
	}
	tmp, err := os.CreateTemp(s.uploadCfg.TempDir, "invoxtract-job-*."+ext)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("creating temp file: %v", err))
		return
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("writing temp file: %v", err))
		return
	}

	res := s.driver.Process(ctx, s.analyzer, port.DocumentInput{
		Path:        tmp.Name(),
		ContentType: job.ContentType,
		FileName:    job.FileName,
	})
	if res.Err != nil {
		s.failJob(ctx, job, fmt.Sprintf("processing document: %v", res.Err))
		return
	}

	var rlErr *extractor.RateLimitError
	if res.HasChunkError(&rlErr) && job.Attempts < maxAttempts {
		retryAt := time.Now().Add(rlErr.RetryAfter)
		reason := fmt.Sprintf("rate limited by %s, queued for retry", rlErr.Provider)
		if err := s.jobRepo.Requeue(ctx, job.ID, retryAt, reason); err != nil {
			log.Printf("invoiceService.RunJob: failed to requeue job %s: %v", job.ID, err)
			return
		}
		log.Printf("invoiceService.RunJob: job %s queued for retry after %s", job.ID, retryAt.Format(time.RFC3339))
		return
	}

	if len(res.Invoices) == 0 {
		s.failJob(ctx, job, domain.ErrNoInvoicesParsed.Error())
		return
	}

	if _, err := s.invoiceRepo.CreateBatch(ctx, job.UserID, &job.ID, res.Invoices); err != nil {
		s.failJob(ctx, job, fmt.Sprintf("saving invoices: %v", err))
		return
	}
	if err := s.jobRepo.Complete(ctx, job.ID, len(res.Invoices)); err != nil {
		log.Printf("invoiceService.RunJob: failed to complete job %s: %v", job.ID, err)
		return
	}
	log.Printf("invoiceService.RunJob: job %s completed with %d invoices", job.ID, len(res.Invoices))
}

func (s *invoiceService) failJob(ctx context.Context, job *domain.ExtractionJob, reason string) {
	log.Printf("invoiceService.failJob: job %s failed: %s", job.ID, reason)
	if err := s.jobRepo.Fail(ctx, job.ID, reason); err != nil {
		log.Printf("invoiceService.failJob: failed to update status for %s: %v", job.ID, err)
	}
}

func (s *invoiceService) GetJob(ctx context.Context, userID string, id uuid.UUID) (*domain.ExtractionJob, error) {
	return s.jobRepo.GetByID(ctx, userID, id)
}

func (s *invoiceService) GetInvoice(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error) {
	return s.invoiceRepo.GetByID(ctx, userID, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error) {
	return s.invoiceRepo.ListByUser(ctx, userID, offset, limit)
}

func (s *invoiceService) Export(ctx context.Context, userID string, format domain.ExportFormat, w io.Writer) error {
	if !format.IsValid() {
		return domain.ErrInvalidExportFormat
	}

	stored, err := s.invoiceRepo.ListAllByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("invoiceService.Export: %w", err)
	}
	invoices := make([]domain.Invoice, len(stored))
	for i := range stored {
		invoices[i] = stored[i].Invoice
	}

	if format == domain.ExportFormatXLSX {
		err = export.WriteXLSX(w, invoices)
	} else {
		err = export.WriteCSV(w, invoices)
	}
	if err != nil {
		return fmt.Errorf("invoiceService.Export: %w", err)
	}
	return nil
}
