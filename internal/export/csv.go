package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"invoxtract/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel on Windows needs to read UTF-8 CSV.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the BOM, the header row and one row per line item.
func WriteCSV(w io.Writer, invoices []domain.Invoice) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(invoices)); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	if err := cw.WriteAll(Rows(invoices)); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}
