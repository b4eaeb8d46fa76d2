package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"invoxtract/internal/domain"
)

// SheetName is the worksheet holding exported invoices.
const SheetName = "Invoices"

// WriteXLSX writes invoices as a single-sheet workbook. Numeric item values
// are stored as numbers; everything else as text.
func WriteXLSX(w io.Writer, invoices []domain.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	cols := Columns(invoices)
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
	}

	for r, line := range rows(invoices) {
		for c, v := range line.values(cols) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, cellValue(v)); err != nil {
				return fmt.Errorf("export.WriteXLSX: %w", err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case float64, string, bool:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return domain.FormatValue(v)
}
