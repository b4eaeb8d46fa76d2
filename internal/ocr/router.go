package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

// Router dispatches documents to a LayoutAnalyzer by file type. A nil
// analyzer leaves that file type unsupported.
type Router struct {
	pdf   port.LayoutAnalyzer
	image port.LayoutAnalyzer
}

// NewRouter creates a Router. image may be nil when no image OCR is configured.
func NewRouter(pdf, image port.LayoutAnalyzer) *Router {
	return &Router{pdf: pdf, image: image}
}

// FileTypeOf resolves the document type from its content type, falling back
// to the extension of the file name and then the path.
func FileTypeOf(doc port.DocumentInput) (domain.FileType, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(doc.ContentType, ";", 2)[0]))
	if ft, ok := domain.AllowedContentTypes[ct]; ok {
		return ft, true
	}
	for _, name := range []string{doc.FileName, doc.Path} {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		if ft, ok := domain.AllowedExtensions[ext]; ok {
			return ft, true
		}
	}
	return "", false
}

func (r *Router) Analyze(ctx context.Context, doc port.DocumentInput) ([]domain.PageContent, error) {
	ft, ok := FileTypeOf(doc)
	if !ok {
		return nil, fmt.Errorf("ocr.Router: %q: %w", doc.FileName, domain.ErrUnsupportedFileType)
	}

	var analyzer port.LayoutAnalyzer
	switch ft {
	case domain.FileTypePDF:
		analyzer = r.pdf
	case domain.FileTypeJPG, domain.FileTypePNG:
		analyzer = r.image
	}
	if analyzer == nil {
		return nil, fmt.Errorf("ocr.Router: no analyzer for %s: %w", ft, domain.ErrUnsupportedFileType)
	}

	pages, err := analyzer.Analyze(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("ocr.Router: %w", err)
	}
	return pages, nil
}
