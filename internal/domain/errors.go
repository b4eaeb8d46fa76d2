package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrMissingUserID       = errors.New("missing user id")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrStorageDisabled     = errors.New("object storage is not configured")
	ErrDocumentUnreadable  = errors.New("document could not be analyzed")
	ErrMalformedPage       = errors.New("malformed page content")
	ErrNoInvoicesParsed    = errors.New("no invoices were parsed from the document")
	ErrInvalidExportFormat = errors.New("invalid export format")
)
