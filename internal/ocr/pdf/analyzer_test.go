package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/text"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

// writeTextPDF writes a single-page PDF that draws each line with Helvetica.
func writeTextPDF(t *testing.T, lines ...string) string {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", l)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestAnalyzer_ReadsTextPDF(t *testing.T) {
	path := writeTextPDF(t, "ACME Produce", "Invoice INV-001")

	pages, err := NewAnalyzer(true).Analyze(context.Background(), port.DocumentInput{Path: path, FileName: "invoice.pdf"})

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNumber)
	joined := strings.ReplaceAll(strings.Join(pages[0].TextLines, ""), " ", "")
	assert.Contains(t, joined, "INV-001")
}

func TestAnalyzer_MissingFile(t *testing.T) {
	_, err := NewAnalyzer(false).Analyze(context.Background(), port.DocumentInput{Path: filepath.Join(t.TempDir(), "nope.pdf")})
	assert.Error(t, err)
}

func TestAnalyzer_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o600))

	_, err := NewAnalyzer(false).Analyze(context.Background(), port.DocumentInput{Path: path})
	assert.Error(t, err)
}

func TestLineTexts_DropsBlank(t *testing.T) {
	got := lineTexts([]layout.Line{{Text: " Invoice 7 "}, {Text: "  "}, {Text: "Total 10.00"}})
	assert.Equal(t, []string{"Invoice 7", "Total 10.00"}, got)
}

func TestModelFragments(t *testing.T) {
	got := modelFragments([]text.TextFragment{{Text: "Qty", X: 10, Y: 700, Width: 20, Height: 12, FontName: "Helvetica", FontSize: 12}})

	require.Len(t, got, 1)
	assert.Equal(t, "Qty", got[0].Text)
	assert.Equal(t, model.BBox{X: 10, Y: 700, Width: 20, Height: 12}, got[0].BBox)
	assert.Equal(t, 12.0, got[0].FontSize)
}

func TestTableContent(t *testing.T) {
	tbl := model.NewTable(2, 3)
	tbl.Rows[0][0].Text = "Item"
	tbl.Rows[0][1].Text = " Qty "
	tbl.Rows[0][2].Text = "Price"
	tbl.Rows[1][0].Text = "Kale"
	tbl.Rows[1][1].Text = "2"

	got := tableContent(tbl)

	assert.Equal(t, domain.Table{
		ColumnCount: 3,
		Rows:        [][]string{{"Item", "Qty", "Price"}, {"Kale", "2", ""}},
	}, got)
}

func TestJoinWords(t *testing.T) {
	assert.Equal(t, "Invoice # 123", joinWords([]string{"Invoice ", " #", "123"}))
	assert.Equal(t, "", joinWords(nil))
}

func TestHasText(t *testing.T) {
	assert.False(t, hasText([]domain.PageContent{{PageNumber: 1}}))
	assert.True(t, hasText([]domain.PageContent{{PageNumber: 1}, {PageNumber: 2, Tables: []domain.Table{{}}}}))
}
