package domain

// ColumnMapping describes how one source column feeds one destination field.
// Entries are keyed by source column name; insertion order follows the file
// header order. A column is exactly one of mapped, ignored, or unmapped.
type ColumnMapping struct {
	SourceColumn    string `json:"source_column"`
	TargetField     string `json:"target_field,omitempty"`
	IsIgnored       bool   `json:"is_ignored"`
	SimilarityScore int    `json:"similarity_score"`
}

// IsMapped reports whether the column contributes values to the import.
func (m *ColumnMapping) IsMapped() bool {
	return !m.IsIgnored && m.TargetField != ""
}

// MappedTargets returns the target field names of all mapped columns, in
// header order.
func MappedTargets(mappings []ColumnMapping) []string {
	targets := make([]string, 0, len(mappings))
	for i := range mappings {
		if mappings[i].IsMapped() {
			targets = append(targets, mappings[i].TargetField)
		}
	}
	return targets
}

// FieldMap is the name to field-identifier mapping produced by schema
// provisioning. It is immutable for the remainder of one import run.
type FieldMap map[string]string
