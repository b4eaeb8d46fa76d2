package pipeline

import (
	"errors"

	"invoxtract/internal/domain"
	"invoxtract/internal/recovery"
)

// ChunkOutcome classifies what happened to one chunk.
type ChunkOutcome string

const (
	// OutcomeExtracted means at least one record was recovered and ingested.
	OutcomeExtracted ChunkOutcome = "extracted"
	// OutcomeEmpty means the response decoded but carried no invoice data.
	OutcomeEmpty ChunkOutcome = "empty"
	// OutcomeUnrecoverable means no decode strategy produced a record.
	OutcomeUnrecoverable ChunkOutcome = "unrecoverable"
	// OutcomeFailed means the extraction call itself returned an error.
	OutcomeFailed ChunkOutcome = "failed"
)

// ChunkResult reports the outcome of a single extraction call.
type ChunkResult struct {
	Ordinal   int
	Chars     int
	Outcome   ChunkOutcome
	Strategy  recovery.Strategy
	Records   int
	ModelUsed string
	Err       error
}

// PageResult reports how one page was processed. Err is set when the page was
// abandoned (malformed input or a panic); chunks handled before that remain.
type PageResult struct {
	PageNumber int
	Chunks     []ChunkResult
	Oversized  bool
	Err        error
}

// Result is the outcome of processing one document. Invoices is never nil.
// Err is set when the document could not be analyzed or processing was canceled.
type Result struct {
	Invoices []domain.Invoice
	Pages    []PageResult
	Err      error
}

// ChunkErrors returns every extraction error in page and chunk order.
func (r *Result) ChunkErrors() []error {
	var errs []error
	for _, p := range r.Pages {
		for _, c := range p.Chunks {
			if c.Err != nil {
				errs = append(errs, c.Err)
			}
		}
	}
	return errs
}

// HasChunkError reports whether any extraction error matches target via errors.As.
func (r *Result) HasChunkError(target any) bool {
	for _, err := range r.ChunkErrors() {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// Counts tallies chunk outcomes across all pages.
func (r *Result) Counts() map[ChunkOutcome]int {
	counts := make(map[ChunkOutcome]int)
	for _, p := range r.Pages {
		for _, c := range p.Chunks {
			counts[c.Outcome]++
		}
	}
	return counts
}
