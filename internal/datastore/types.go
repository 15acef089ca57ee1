package datastore

// Table is a destination table resource.
type Table struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is one column of a destination table. The service marks the
// auto-created primary field; it can be renamed but never deleted.
type Field struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsPrimary bool   `json:"isPrimary,omitempty"`
}

// FieldTypeText is the generic text type used for every provisioned column.
const FieldTypeText = "singleLineText"

// RecordPayload is one row keyed by field identifier.
type RecordPayload struct {
	Fields map[string]string `json:"fields"`
}

// Record is a row as returned by the service.
type Record struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// RecordPage is one page of a paginated row listing.
type RecordPage struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Offset  string   `json:"offset,omitempty"`
}

// FileDescriptor describes an uploaded file resource.
type FileDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// LoginResponse carries the short-lived bearer credential for
// schema-mutating operations.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

type bulkCreateRequest struct {
	Records []RecordPayload `json:"records"`
	// Typecast asks the service to coerce values into field types. Some
	// deployments reject it; callers retry once without it.
	Typecast bool `json:"typecast,omitempty"`
}

type bulkCreateResponse struct {
	Records []Record `json:"records"`
}
