package domain

// SourceFile is the raw uploaded spreadsheet as received from the operator.
// It is immutable once read; the import pipeline consumes it through a
// FileSessionRecord and the recovery manager, never directly after upload.
type SourceFile struct {
	Name     string
	Size     int64
	MIMEType string
	Content  string
}

// TruncationMarker is appended to stored content when the session cache could
// not hold the full file. Recovered content must have it stripped before the
// remainder is treated as row data.
const TruncationMarker = "\n...[TRUNCATED]"
