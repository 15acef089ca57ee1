package parser

import "strings"

// ParsedContent holds a tokenized file: the header columns and every
// non-empty data row, in file order.
type ParsedContent struct {
	Header    []string
	Rows      [][]string
	Delimiter rune
}

// ParseContent tokenizes a whole file. The first non-empty line is the
// header; subsequent empty or delimiter-only lines are skipped. Row width is
// not enforced here; the record builder pairs fields with header columns
// positionally and ignores overflow.
func ParseContent(content string) *ParsedContent {
	lines := SplitLines(content)
	parsed := &ParsedContent{Delimiter: DefaultDelimiter}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if parsed.Header == nil {
			parsed.Delimiter = DetectDelimiter(line)
			parsed.Header = ParseLine(line, parsed.Delimiter)
			continue
		}
		if row := ParseLine(line, parsed.Delimiter); row != nil {
			parsed.Rows = append(parsed.Rows, row)
		}
	}
	return parsed
}

// ParseHeader tokenizes only the first non-empty line. Used for header-only
// session records, whose content must never be treated as row data.
func ParseHeader(content string) []string {
	for _, line := range SplitLines(content) {
		if strings.TrimSpace(line) != "" {
			return ParseLine(line, DetectDelimiter(line))
		}
	}
	return nil
}

// SplitLines splits on \n and tolerates \r\n endings.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// CountLines returns the number of non-empty lines in content.
func CountLines(content string) int {
	n := 0
	for _, line := range SplitLines(content) {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
