package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExtractionJob tracks an uploaded document queued for asynchronous extraction.
type ExtractionJob struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	FileName     string     `db:"file_name" json:"file_name"`
	ContentType  string     `db:"content_type" json:"content_type"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	S3Bucket     string     `db:"s3_bucket" json:"-"`
	S3Key        string     `db:"s3_key" json:"-"`
	Status       JobStatus  `db:"status" json:"status"`
	Attempts     int        `db:"attempts" json:"attempts"`
	InvoiceCount int        `db:"invoice_count" json:"invoice_count"`
	Error        string     `db:"error" json:"error,omitempty"`
	RetryAfter   *time.Time `db:"retry_after" json:"retry_after,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StoredInvoice is a finalized invoice persisted for a user.
type StoredInvoice struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
	Invoice   Invoice    `json:"invoice"`
	CreatedAt time.Time  `json:"created_at"`
}

// PageContent is the OCR/layout view of one document page.
type PageContent struct {
	PageNumber int      `json:"page_number"`
	TextLines  []string `json:"text_lines"`
	Tables     []Table  `json:"tables"`
}

// Validate rejects pages the formatter cannot label.
func (p PageContent) Validate() error {
	if p.PageNumber <= 0 {
		return ErrMalformedPage
	}
	return nil
}

// Table is a rectangular block of cell strings. Row 0 is the header row.
type Table struct {
	ColumnCount int        `json:"column_count"`
	Rows        [][]string `json:"rows"`
}

// RowStrings renders every row tab-joined, padded or truncated to ColumnCount.
// A ColumnCount of zero keeps each row as-is.
func (t Table) RowStrings() []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := row
		if t.ColumnCount > 0 && len(row) != t.ColumnCount {
			cells = make([]string, t.ColumnCount)
			copy(cells, row)
		}
		out = append(out, strings.Join(cells, "\t"))
	}
	return out
}

// TextChunk is one unit of text sent to the extractor in a single call.
type TextChunk struct {
	SourcePage int    `json:"source_page"`
	Ordinal    int    `json:"ordinal"`
	Body       string `json:"body"`
}
