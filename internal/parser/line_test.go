package parser

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	testCases := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted field with embedded delimiter",
			line: `Max,"O'Brien, Jr.",max@x.com`,
			want: []string{"Max", "O'Brien, Jr.", "max@x.com"},
		},
		{
			name: "escaped quotes",
			line: `"say ""hi""",b`,
			want: []string{`say "hi"`, "b"},
		},
		{
			name: "whitespace trimmed",
			line: "  a , b ,c  ",
			want: []string{"a", "b", "c"},
		},
		{
			name: "field starting unquoted then quoted",
			line: `pre"quoted, part",b`,
			want: []string{"prequoted, part", "b"},
		},
		{
			name: "unmatched quote degrades to raw",
			line: `"unterminated,b`,
			want: []string{"unterminated,b"},
		},
		{
			name: "empty line skipped",
			line: "",
			want: nil,
		},
		{
			name: "delimiter-only line skipped",
			line: ",,,",
			want: nil,
		},
		{
			name: "whitespace-only line skipped",
			line: "   ",
			want: nil,
		},
		{
			name: "empty fields kept around data",
			line: "a,,c",
			want: []string{"a", "", "c"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLine(tc.line, ',')
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseLine(%q) = %#v, want %#v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseLineHeaderRowWidthAgreement(t *testing.T) {
	header := ParseLine("name,last,email", ',')
	rows := []string{
		"Max,\"O'Brien, Jr.\",max@x.com",
		"Ana,Lopez,ana@x.com",
		`"Quote ""Q"" Smith",S,q@x.com`,
	}
	for _, line := range rows {
		row := ParseLine(line, ',')
		if len(row) != len(header) {
			t.Errorf("row %q width %d, header width %d", line, len(row), len(header))
		}
	}
}

func TestDetectDelimiter(t *testing.T) {
	testCases := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{"single", ','},
	}
	for _, tc := range testCases {
		if got := DetectDelimiter(tc.line); got != tc.want {
			t.Errorf("DetectDelimiter(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestParseContent(t *testing.T) {
	content := "name,email\r\nMax,max@x.com\n\n,,\nAna,ana@x.com\n"
	parsed := ParseContent(content)

	if !reflect.DeepEqual(parsed.Header, []string{"name", "email"}) {
		t.Fatalf("header = %#v", parsed.Header)
	}
	if len(parsed.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (%#v)", len(parsed.Rows), parsed.Rows)
	}
	if parsed.Rows[0][0] != "Max" || parsed.Rows[1][1] != "ana@x.com" {
		t.Errorf("unexpected rows: %#v", parsed.Rows)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	header := ParseHeader("\nname;email;phone\nrow,should,not,matter")
	if !reflect.DeepEqual(header, []string{"name", "email", "phone"}) {
		t.Errorf("ParseHeader = %#v", header)
	}
}

func TestCountLines(t *testing.T) {
	if n := CountLines("a\n\nb\nc\n"); n != 3 {
		t.Errorf("CountLines = %d, want 3", n)
	}
}
