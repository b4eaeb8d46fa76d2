package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoxtract/internal/config"
	"invoxtract/internal/domain"
	"invoxtract/internal/extractor"
	"invoxtract/internal/pipeline"
	"invoxtract/internal/port"
	"invoxtract/internal/service"
	"invoxtract/mocks"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n%%EOF\n")

const oneInvoiceJSON = `[{"Invoice Number": "A-1", "Supplier Name": "ACME", "Total": "$10.00",
 "List of Items": [{"Item Name": "Kale"}, {"Item Name": "Kale"}]}]`

type serviceFixture struct {
	svc         service.InvoiceService
	analyzer    *mocks.MockLayoutAnalyzer
	extractor   *mocks.MockExtractor
	invoiceRepo *mocks.MockInvoiceRepo
	jobRepo     *mocks.MockJobRepo
	storage     *mocks.MockObjectStorage
	tempDir     string
}

func newFixture(t *testing.T, withStorage bool) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		analyzer:    new(mocks.MockLayoutAnalyzer),
		extractor:   new(mocks.MockExtractor),
		invoiceRepo: new(mocks.MockInvoiceRepo),
		jobRepo:     new(mocks.MockJobRepo),
		storage:     new(mocks.MockObjectStorage),
		tempDir:     t.TempDir(),
	}
	driver := pipeline.New(f.extractor, pipeline.Config{MaxChunkChars: 16000})

	var storage port.ObjectStorage
	s3Cfg := config.S3Config{}
	if withStorage {
		storage = f.storage
		s3Cfg.Bucket = "invoices"
	}
	f.svc = service.NewInvoiceService(driver, f.analyzer, f.invoiceRepo, f.jobRepo, storage, s3Cfg,
		config.UploadConfig{MaxFileSizeMB: 1, TempDir: f.tempDir})
	return f
}

func (f *serviceFixture) pages() {
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return([]domain.PageContent{
		{PageNumber: 1, TextLines: []string{"ACME", "Invoice A-1", "Kale 2"}},
	}, nil)
}

func upload(name string, data []byte) service.UploadInput {
	return service.UploadInput{UserID: "user-1", FileName: name, Size: int64(len(data)), File: bytes.NewReader(data)}
}

func TestProcess_Success(t *testing.T) {
	f := newFixture(t, false)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(&port.ExtractOutput{RawText: oneInvoiceJSON, ModelUsed: "m"}, nil)
	stored := []domain.StoredInvoice{{ID: uuid.New(), UserID: "user-1", Invoice: domain.Invoice{InvoiceNumber: "A-1"}}}
	f.invoiceRepo.On("CreateBatch", mock.Anything, "user-1", (*uuid.UUID)(nil), mock.MatchedBy(func(invs []domain.Invoice) bool {
		return len(invs) == 1 && invs[0].InvoiceNumber == "A-1" && len(invs[0].Items) == 2 && invs[0].Total == 10
	})).Return(stored, nil)

	res, err := f.svc.Process(context.Background(), upload("invoice.pdf", pdfBytes))

	require.NoError(t, err)
	assert.Equal(t, []string{"A-1"}, res.InvoiceNumbers)
	assert.Equal(t, stored, res.Invoices)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, res.ChunkOutcomes[pipeline.OutcomeExtracted])
	f.analyzer.AssertCalled(t, "Analyze", mock.Anything, mock.MatchedBy(func(doc port.DocumentInput) bool {
		return doc.ContentType == "application/pdf" && doc.FileName == "invoice.pdf" && strings.HasSuffix(doc.Path, ".pdf")
	}))
}

func TestProcess_NoInvoices(t *testing.T) {
	f := newFixture(t, false)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(&port.ExtractOutput{RawText: "[]"}, nil)

	res, err := f.svc.Process(context.Background(), upload("invoice.pdf", pdfBytes))

	require.NoError(t, err)
	assert.Empty(t, res.InvoiceNumbers)
	assert.NotNil(t, res.Invoices)
	f.invoiceRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_UnreadableDocument(t *testing.T) {
	f := newFixture(t, false)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("corrupt"))

	_, err := f.svc.Process(context.Background(), upload("invoice.pdf", pdfBytes))

	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestProcess_UnsupportedFile(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Process(context.Background(), upload("invoice.docx", pdfBytes))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestProcess_SaveFails(t *testing.T) {
	f := newFixture(t, false)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(&port.ExtractOutput{RawText: oneInvoiceJSON}, nil)
	f.invoiceRepo.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := f.svc.Process(context.Background(), upload("invoice.pdf", pdfBytes))

	assert.ErrorContains(t, err, "db down")
}

func TestSubmit_StorageDisabled(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Submit(context.Background(), upload("invoice.pdf", pdfBytes))

	assert.ErrorIs(t, err, domain.ErrStorageDisabled)
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t, true)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "invoices" && strings.HasPrefix(in.Key, "uploads/user-1/") &&
			strings.HasSuffix(in.Key, "/invoice.pdf") && in.ContentType == "application/pdf"
	})).Return(&port.UploadOutput{}, nil)
	f.jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.ExtractionJob) bool {
		return job.Status == domain.JobStatusQueued && job.UserID == "user-1" && job.FileSize == int64(len(pdfBytes))
	})).Return(nil)

	job, err := f.svc.Submit(context.Background(), upload("invoice.pdf", pdfBytes))

	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", job.FileName)
	assert.Equal(t, "uploads/user-1/"+job.ID.String()+"/invoice.pdf", job.S3Key)
}

func TestSubmit_UploadFails(t *testing.T) {
	f := newFixture(t, true)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down"))

	_, err := f.svc.Submit(context.Background(), upload("invoice.pdf", pdfBytes))

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	f.jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_CreateFailsRemovesUpload(t *testing.T) {
	f := newFixture(t, true)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.jobRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.storage.On("Delete", mock.Anything, "invoices", mock.Anything).Return(nil)

	_, err := f.svc.Submit(context.Background(), upload("invoice.pdf", pdfBytes))

	assert.Error(t, err)
	f.storage.AssertCalled(t, "Delete", mock.Anything, "invoices", mock.Anything)
}

func queuedJob(attempts int) *domain.ExtractionJob {
	return &domain.ExtractionJob{
		ID:          uuid.New(),
		UserID:      "user-1",
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		S3Bucket:    "invoices",
		S3Key:       "uploads/user-1/x/invoice.pdf",
		Status:      domain.JobStatusProcessing,
		Attempts:    attempts,
	}
}

func TestRunJob_Completes(t *testing.T) {
	f := newFixture(t, true)
	job := queuedJob(1)
	f.storage.On("Download", mock.Anything, job.S3Bucket, job.S3Key).Return(pdfBytes, nil)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(&port.ExtractOutput{RawText: oneInvoiceJSON}, nil)
	f.invoiceRepo.On("CreateBatch", mock.Anything, "user-1", &job.ID, mock.Anything).Return([]domain.StoredInvoice{{}}, nil)
	f.jobRepo.On("Complete", mock.Anything, job.ID, 1).Return(nil)

	f.svc.RunJob(context.Background(), job, 3)

	f.jobRepo.AssertExpectations(t)
	f.invoiceRepo.AssertExpectations(t)
}

func TestRunJob_RateLimitedRequeues(t *testing.T) {
	f := newFixture(t, true)
	job := queuedJob(1)
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(pdfBytes, nil)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, extractor.NewRateLimitError("all", errors.New("429"), 30))
	f.jobRepo.On("Requeue", mock.Anything, job.ID, mock.Anything, mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, "rate limited")
	})).Return(nil)

	f.svc.RunJob(context.Background(), job, 3)

	f.jobRepo.AssertExpectations(t)
	f.jobRepo.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything)
	f.invoiceRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunJob_RateLimitedAtMaxAttemptsFails(t *testing.T) {
	f := newFixture(t, true)
	job := queuedJob(3)
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(pdfBytes, nil)
	f.pages()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, extractor.NewRateLimitError("all", errors.New("429"), 30))
	f.jobRepo.On("Fail", mock.Anything, job.ID, domain.ErrNoInvoicesParsed.Error()).Return(nil)

	f.svc.RunJob(context.Background(), job, 3)

	f.jobRepo.AssertExpectations(t)
	f.jobRepo.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunJob_DownloadFails(t *testing.T) {
	f := newFixture(t, true)
	job := queuedJob(1)
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("gone"))
	f.jobRepo.On("Fail", mock.Anything, job.ID, mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, "gone")
	})).Return(nil)

	f.svc.RunJob(context.Background(), job, 3)

	f.jobRepo.AssertExpectations(t)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestRunJob_UnreadableFails(t *testing.T) {
	f := newFixture(t, true)
	job := queuedJob(1)
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(pdfBytes, nil)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("bad xref"))
	f.jobRepo.On("Fail", mock.Anything, job.ID, mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, domain.ErrDocumentUnreadable.Error())
	})).Return(nil)

	f.svc.RunJob(context.Background(), job, 3)

	f.jobRepo.AssertExpectations(t)
}

func TestExport_CSV(t *testing.T) {
	f := newFixture(t, false)
	f.invoiceRepo.On("ListAllByUser", mock.Anything, "user-1").Return([]domain.StoredInvoice{
		{Invoice: domain.Invoice{InvoiceNumber: "A-1", Items: []domain.LineItem{{"Item Name": "Kale"}}}},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(context.Background(), "user-1", domain.ExportFormatCSV, &buf))

	assert.Contains(t, buf.String(), "Invoice Number")
	assert.Contains(t, buf.String(), "A-1")
}

func TestExport_InvalidFormat(t *testing.T) {
	f := newFixture(t, false)

	err := f.svc.Export(context.Background(), "user-1", domain.ExportFormat("pdf"), &bytes.Buffer{})

	assert.ErrorIs(t, err, domain.ErrInvalidExportFormat)
}

func TestGetters_Delegate(t *testing.T) {
	f := newFixture(t, false)
	id := uuid.New()
	f.jobRepo.On("GetByID", mock.Anything, "user-1", id).Return(nil, domain.ErrNotFound)
	f.invoiceRepo.On("GetByID", mock.Anything, "user-1", id).Return(&domain.StoredInvoice{ID: id}, nil)
	f.invoiceRepo.On("ListByUser", mock.Anything, "user-1", 0, 20).Return([]domain.StoredInvoice{}, 0, nil)

	_, err := f.svc.GetJob(context.Background(), "user-1", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inv, err := f.svc.GetInvoice(context.Background(), "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, id, inv.ID)

	list, total, err := f.svc.ListInvoices(context.Background(), "user-1", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
}
