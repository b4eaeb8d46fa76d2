package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"
)

// Strategy names the decode step that produced a Result.
type Strategy int

const (
	None Strategy = iota
	Direct
	Fenced
	OuterBraces
	BraceScan
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Fenced:
		return "fenced"
	case OuterBraces:
		return "outer_braces"
	case BraceScan:
		return "brace_scan"
	}
	return "none"
}

// Result holds the JSON objects recovered from one model response, in
// left-to-right order. Strategy is None when nothing could be recovered.
type Result struct {
	Records  []map[string]any
	Strategy Strategy
}

// OK reports whether any strategy succeeded. A successful recovery may still
// hold zero records (the model answered with an empty array).
func (r Result) OK() bool {
	return r.Strategy != None
}

const fence = "```"

// Recover extracts structured records from raw model output. It tries, in
// order: a strict decode of the whole (optionally fenced) text, the first fenced
// block, the span from the first '{' to the last '}', and finally a
// balanced-brace scan that can return several concatenated objects.
// It never panics and never returns an error; total failure is Strategy None.
func Recover(raw string) Result {
	text := Sanitize(raw)

	if recs, ok := decode(unwrap(text)); ok {
		return Result{Records: recs, Strategy: Direct}
	}
	if body, ok := fencedBody(text); ok {
		if recs, ok := decode(body); ok {
			return Result{Records: recs, Strategy: Fenced}
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if recs, ok := decode(text[start : end+1]); ok {
			return Result{Records: recs, Strategy: OuterBraces}
		}
	}
	if recs := scanObjects(text); len(recs) > 0 {
		return Result{Records: recs, Strategy: BraceScan}
	}
	return Result{Strategy: None}
}

// Sanitize drops every rune that is neither printable nor whitespace.
func Sanitize(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, raw)
}

// unwrap trims the text and removes a fence pair wrapping all of it, along
// with an optional json label.
func unwrap(text string) string {
	t := strings.TrimSpace(text)
	if len(t) >= 2*len(fence) && strings.HasPrefix(t, fence) && strings.HasSuffix(t, fence) {
		t = t[len(fence) : len(t)-len(fence)]
	}
	t = strings.TrimSpace(t)
	if len(t) >= 4 && strings.EqualFold(t[:4], "json") {
		t = t[4:]
	}
	return strings.TrimSpace(t)
}

// fencedBody returns the content between the first fence (preferring a
// json-labelled one) and the next fence. An unterminated block runs to the end.
func fencedBody(text string) (string, bool) {
	if !strings.Contains(text, fence) {
		return "", false
	}
	var rest string
	if i := strings.Index(strings.ToLower(text), fence+"json"); i >= 0 {
		rest = text[i+len(fence)+4:]
	} else {
		rest = text[strings.Index(text, fence)+len(fence):]
	}
	if j := strings.Index(rest, fence); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest), true
}

// decode strictly decodes exactly one JSON value. Objects become a single
// record; arrays yield their object elements. Anything else is a failure.
func decode(s string) ([]map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}, true
	case []any:
		recs := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if obj, ok := el.(map[string]any); ok {
				recs = append(recs, obj)
			}
		}
		return recs, true
	}
	return nil, false
}

// scanObjects walks the text collecting every balanced {...} span that
// decodes. Failed spans are skipped; an unbalanced span resumes the scan at the
// next '{' after its opening brace.
func scanObjects(text string) []map[string]any {
	var out []map[string]any
	pos := 0
	for pos < len(text) {
		off := strings.IndexByte(text[pos:], '{')
		if off < 0 {
			break
		}
		start := pos + off
		end := matchBrace(text, start)
		if end < 0 {
			pos = start + 1
			continue
		}
		if recs, ok := decode(text[start : end+1]); ok {
			out = append(out, recs...)
		}
		pos = end + 1
	}
	return out
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
