package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invoxtract/internal/domain"
	"invoxtract/internal/export"
)

func sampleInvoices() []domain.Invoice {
	return []domain.Invoice{
		{
			InvoiceNumber: "0042",
			SupplierName:  "ACME Produce",
			Total:         36.5,
			Items: []domain.LineItem{
				{"Item Name": "Kale", "Quantity Shipped": 2.0, "Extended Price": json.Number("12.50")},
				{"Item Name": "Kale", "Quantity Shipped": 2.0, "Extended Price": json.Number("12.50"), "Lot": "A7"},
			},
		},
		{InvoiceNumber: "0043", Total: 0},
	}
}

func TestColumns(t *testing.T) {
	cols := export.Columns(sampleInvoices())

	assert.Equal(t, "Invoice Number", cols[0])
	assert.Equal(t, "Total", cols[6])
	assert.Equal(t, domain.ItemTemplateKeys[0], cols[7])
	assert.Equal(t, "Lot", cols[len(cols)-1])
	assert.Len(t, cols, 7+len(domain.ItemTemplateKeys)+1)
}

func TestRows_OneRowPerItemKeepsDuplicates(t *testing.T) {
	invoices := sampleInvoices()
	cols := export.Columns(invoices)
	rows := export.Rows(invoices)

	require.Len(t, rows, 3)
	idx := func(name string) int {
		for i, c := range cols {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %q missing", name)
		return -1
	}

	assert.Equal(t, "0042", rows[0][0])
	assert.Equal(t, "36.50", rows[0][6])
	assert.Equal(t, "Kale", rows[0][idx("Item Name")])
	assert.Equal(t, "Kale", rows[1][idx("Item Name")])
	assert.Equal(t, "12.50", rows[1][idx("Extended Price")])
	assert.Equal(t, "2", rows[1][idx("Quantity Shipped")])
	assert.Equal(t, "", rows[0][idx("Lot")])
	assert.Equal(t, "A7", rows[1][idx("Lot")])

	// invoice without items still exported
	assert.Equal(t, "0043", rows[2][0])
	assert.Equal(t, "", rows[2][idx("Item Name")])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleInvoices()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, export.BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "Invoice Number", records[0][0])
	assert.Equal(t, "0043", records[3][0])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sampleInvoices()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetName}, f.GetSheetList())
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Invoice Number", rows[0][0])
	assert.Equal(t, "0042", rows[1][0])
	assert.Equal(t, "36.5", rows[1][6])
	assert.Equal(t, "0043", rows[3][0])
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "invoices_user_42_2025-03-09.csv", export.BuildFilename("invoices user@42", domain.ExportFormatCSV, now))
	assert.Equal(t, "invoices_2025-03-09.xlsx", export.BuildFilename("!!!", domain.ExportFormatXLSX, now))
}

func TestContentType(t *testing.T) {
	assert.Contains(t, export.ContentType(domain.ExportFormatCSV), "text/csv")
	assert.Contains(t, export.ContentType(domain.ExportFormatXLSX), "spreadsheetml")
}
