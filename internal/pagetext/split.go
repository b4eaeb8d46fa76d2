package pagetext

import (
	"regexp"
	"unicode/utf8"

	"invoxtract/internal/domain"
)

// Format puts each table-start marker on a line of its own.
var tableStartPattern = regexp.MustCompile(`(?m)^----- Table \d+ Start -----$`)

// Split breaks a formatted page into chunks that each fit maxChars runes when
// possible. Splits happen only immediately before a table-start marker, so the
// text section and each table section stay whole. Concatenating the result
// reproduces formatted exactly. A maxChars of zero or less disables splitting.
func Split(formatted string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(formatted) <= maxChars {
		return []string{formatted}
	}

	locs := tableStartPattern.FindAllStringIndex(formatted, -1)
	if len(locs) == 0 {
		return []string{formatted}
	}

	chunks := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		if loc[0] == start {
			continue
		}
		chunks = append(chunks, formatted[start:loc[0]])
		start = loc[0]
	}
	chunks = append(chunks, formatted[start:])
	return chunks
}

// Chunks formats the page and splits it against maxChars. The boolean reports
// whether any chunk is still over budget (a single table section too large to split).
func Chunks(page domain.PageContent, maxChars int) ([]domain.TextChunk, bool) {
	parts := Split(Format(page), maxChars)
	out := make([]domain.TextChunk, 0, len(parts))
	oversized := false
	for i, body := range parts {
		if maxChars > 0 && utf8.RuneCountInString(body) > maxChars {
			oversized = true
		}
		out = append(out, domain.TextChunk{
			SourcePage: page.PageNumber,
			Ordinal:    i,
			Body:       body,
		})
	}
	return out, oversized
}
