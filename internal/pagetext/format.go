package pagetext

import (
	"fmt"
	"strings"

	"invoxtract/internal/domain"
)

// Format renders one page's text lines and tables as a delimited block for model
// input. Output is deterministic and keeps every line and row in input order.
func Format(page domain.PageContent) string {
	lines := make([]string, 0, 4+len(page.TextLines))
	lines = append(lines,
		fmt.Sprintf("\n----- Page %d Start -----\n", page.PageNumber),
		"TEXT CONTENT:",
	)
	for i, line := range page.TextLines {
		lines = append(lines, fmt.Sprintf("%d:%s", i+1, line))
	}

	for k, table := range page.Tables {
		lines = append(lines, fmt.Sprintf("\n%s\n", tableStartMarker(k+1)))
		rows := table.RowStrings()
		if len(rows) > 0 {
			lines = append(lines, "Header: "+rows[0])
			for j, row := range rows[1:] {
				lines = append(lines, fmt.Sprintf("Row %d: %s", j+1, row))
			}
		}
		lines = append(lines, fmt.Sprintf("----- Table %d End -----\n", k+1))
	}

	lines = append(lines, fmt.Sprintf("----- Page %d End -----\n", page.PageNumber))
	return strings.Join(lines, "\n")
}

func tableStartMarker(n int) string {
	return fmt.Sprintf("----- Table %d Start -----", n)
}
