// Package parser tokenizes flat delimited-text files into header and row
// field sequences. It is deliberately more forgiving than encoding/csv:
// malformed quoting degrades to raw characters instead of failing the whole
// import, because operator spreadsheets are rarely well-formed.
package parser

import "strings"

// DefaultDelimiter is used when no delimiter is detected or configured.
const DefaultDelimiter = ','

// ParseLine splits one line of delimited text into trimmed field strings.
// A delimiter inside double quotes does not split; a doubled quote inside a
// quoted region is an escaped literal quote. Unmatched quotes are kept as
// raw characters rather than raising an error. An empty or delimiter-only
// line yields an empty slice, signaling the row should be skipped upstream.
func ParseLine(line string, delimiter rune) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var fields []string
	var current strings.Builder
	inQuotes := false
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				// Escaped quote inside a quoted field.
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delimiter && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	// A line that only ever produced empty fields carries no data.
	empty := true
	for _, f := range fields {
		if f != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil
	}
	return fields
}

// DetectDelimiter sniffs the delimiter from a header line by frequency among
// the usual suspects. Ties fall back to the comma.
func DetectDelimiter(headerLine string) rune {
	best := DefaultDelimiter
	bestCount := 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		n := strings.Count(headerLine, string(cand))
		if n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
