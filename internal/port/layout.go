package port

import (
	"context"

	"invoxtract/internal/domain"
)

// DocumentInput identifies a document on local disk for layout analysis.
type DocumentInput struct {
	Path        string
	ContentType string
	FileName    string
}

// LayoutAnalyzer turns a document into per-page text lines and tables.
type LayoutAnalyzer interface {
	Analyze(ctx context.Context, doc DocumentInput) ([]domain.PageContent, error)
}
