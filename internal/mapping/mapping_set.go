package mapping

import "github.com/timmy/gridport/internal/domain"

// Set holds the working column mapping for one import, keyed by source
// column with insertion order preserved (file header order). At most one
// source column maps to any target field; reassignment evicts the previous
// holder.
type Set struct {
	order   []string
	entries map[string]*domain.ColumnMapping
}

// Propose builds a default mapping for the given header by running
// SmartMatch against the candidate target fields. Columns that match nothing
// start unmapped, not ignored.
func Propose(header []string, candidates []string) *Set {
	s := &Set{entries: make(map[string]*domain.ColumnMapping, len(header))}
	taken := make(map[string]bool, len(candidates))

	for _, col := range header {
		if _, exists := s.entries[col]; exists {
			// Duplicate header names keep only the first occurrence.
			continue
		}
		entry := &domain.ColumnMapping{SourceColumn: col}
		if target, score := SmartMatch(col, candidates); target != "" && !taken[target] {
			entry.TargetField = target
			entry.SimilarityScore = score
			taken[target] = true
		}
		s.order = append(s.order, col)
		s.entries[col] = entry
	}
	return s
}

// NewSet builds a Set from operator-supplied mappings, applying conflict
// eviction in order so the last writer of each target wins.
func NewSet(mappings []domain.ColumnMapping) *Set {
	s := &Set{entries: make(map[string]*domain.ColumnMapping, len(mappings))}
	for i := range mappings {
		m := mappings[i]
		if _, exists := s.entries[m.SourceColumn]; exists {
			continue
		}
		s.order = append(s.order, m.SourceColumn)
		entry := &domain.ColumnMapping{SourceColumn: m.SourceColumn, IsIgnored: m.IsIgnored}
		s.entries[m.SourceColumn] = entry
		if !m.IsIgnored && m.TargetField != "" {
			s.Assign(m.SourceColumn, m.TargetField, m.SimilarityScore)
		}
	}
	return s
}

// Assign maps a source column to a target field. Any other column currently
// holding that target is evicted to unmapped. A similarity-100 holder is
// authoritative against automatic re-matches (score < 100) and is not
// silently overridden by them, but an explicit operator assignment carries
// score 100 and always evicts. Assign reports whether the change was
// applied.
func (s *Set) Assign(sourceColumn, target string, score int) bool {
	entry, ok := s.entries[sourceColumn]
	if !ok {
		return false
	}
	if target == "" {
		entry.TargetField = ""
		entry.SimilarityScore = 0
		return true
	}
	for col, other := range s.entries {
		if col == sourceColumn || other.TargetField != target {
			continue
		}
		if other.SimilarityScore == 100 && score < 100 {
			return false
		}
		other.TargetField = ""
		other.SimilarityScore = 0
	}
	entry.TargetField = target
	entry.SimilarityScore = score
	entry.IsIgnored = false
	return true
}

// Ignore marks a column as ignored, clearing any assignment.
func (s *Set) Ignore(sourceColumn string) {
	if entry, ok := s.entries[sourceColumn]; ok {
		entry.IsIgnored = true
		entry.TargetField = ""
		entry.SimilarityScore = 0
	}
}

// Get returns the entry for a source column, or nil.
func (s *Set) Get(sourceColumn string) *domain.ColumnMapping {
	return s.entries[sourceColumn]
}

// Entries returns the mappings in header order.
func (s *Set) Entries() []domain.ColumnMapping {
	out := make([]domain.ColumnMapping, 0, len(s.order))
	for _, col := range s.order {
		out = append(out, *s.entries[col])
	}
	return out
}

// MappedColumns returns the source columns that contribute to the import,
// in header order.
func (s *Set) MappedColumns() []domain.ColumnMapping {
	out := make([]domain.ColumnMapping, 0, len(s.order))
	for _, col := range s.order {
		if e := s.entries[col]; e.IsMapped() {
			out = append(out, *e)
		}
	}
	return out
}
