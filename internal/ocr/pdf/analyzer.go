package pdf

import (
	"context"
	"fmt"
	"log"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

// Analyzer extracts per-page text lines and tables from PDF files. Pages are
// read with tabula; documents tabula cannot open are retried with the
// simpler row reader.
type Analyzer struct {
	detectTables bool
}

// NewAnalyzer creates a PDF Analyzer. When detectTables is set, tabular
// regions found on each page are returned alongside the text lines.
func NewAnalyzer(detectTables bool) *Analyzer {
	return &Analyzer{detectTables: detectTables}
}

func (a *Analyzer) Analyze(ctx context.Context, doc port.DocumentInput) ([]domain.PageContent, error) {
	pages, err := a.analyzeLayout(ctx, doc.Path)
	if err == nil && hasText(pages) {
		return pages, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("pdf.Analyzer: %w", ctx.Err())
	}
	if err != nil {
		log.Printf("pdf.Analyzer: layout read of %s failed, falling back to row reader: %v", doc.FileName, err)
	}

	fallback, ferr := readRows(ctx, doc.Path)
	switch {
	case ferr != nil && err != nil:
		return nil, fmt.Errorf("pdf.Analyzer: %w", err)
	case ferr != nil, err == nil && !hasText(fallback):
		// text-free document; the layout result is still a valid page list
		return pages, nil
	}
	return fallback, nil
}

func (a *Analyzer) analyzeLayout(ctx context.Context, path string) (pages []domain.PageContent, err error) {
	// tabula panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("layout reader panic: %v", r)
		}
	}()

	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, err
	}

	ro := layout.NewReadingOrderDetector()
	detector := tables.NewGeometricDetector()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		width, _ := page.Width()
		height, _ := page.Height()

		content := domain.PageContent{PageNumber: i + 1}
		if res := ro.Detect(fragments, width, height); res != nil {
			content.TextLines = lineTexts(res.Lines)
		}
		if a.detectTables && len(fragments) > 0 {
			mp := model.NewPage(width, height)
			mp.Number = i + 1
			mp.RawText = modelFragments(fragments)
			found, err := detector.Detect(mp)
			if err != nil {
				log.Printf("pdf.Analyzer: table detection failed on page %d: %v", i+1, err)
			}
			for _, t := range found {
				content.Tables = append(content.Tables, tableContent(t))
			}
		}
		pages = append(pages, content)
	}
	return pages, nil
}

func readRows(ctx context.Context, path string) ([]domain.PageContent, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []domain.PageContent
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content := domain.PageContent{PageNumber: i}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, content)
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := joinWords(words); line != "" {
				content.TextLines = append(content.TextLines, line)
			}
		}
		pages = append(pages, content)
	}
	return pages, nil
}

func lineTexts(lines []layout.Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func modelFragments(fragments []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return out
}

func tableContent(t *model.Table) domain.Table {
	out := domain.Table{ColumnCount: t.ColCount()}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c.Text)
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func joinWords(words []string) string {
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}

func hasText(pages []domain.PageContent) bool {
	for _, p := range pages {
		if len(p.TextLines) > 0 || len(p.Tables) > 0 {
			return true
		}
	}
	return false
}
