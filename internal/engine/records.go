package engine

import (
	"context"

	"github.com/timmy/gridport/internal/domain"
)

// buildRecords converts parsed rows into field-identifier-keyed records by
// applying the column mapping. Empty values and unmapped or ignored columns
// are dropped; a row contributing zero non-empty mapped values is skipped
// entirely and never counted as attempted. Acceptance policy is "any
// non-empty mapped value", not "all columns present".
func buildRecords(ctx context.Context, rows [][]string, header []string, mappings []domain.ColumnMapping, fieldMap domain.FieldMap) ([]domain.ImportRecord, error) {
	// Pre-resolve header position -> field ID once.
	fieldByIndex := make([]string, len(header))
	byColumn := make(map[string]*domain.ColumnMapping, len(mappings))
	for i := range mappings {
		byColumn[mappings[i].SourceColumn] = &mappings[i]
	}
	for i, col := range header {
		m, ok := byColumn[col]
		if !ok || !m.IsMapped() {
			continue
		}
		fieldByIndex[i] = fieldMap[m.TargetField]
	}

	records := make([]domain.ImportRecord, 0, len(rows))
	for _, row := range rows {
		// Cancellation is checked at the top of the preparation loop so a
		// huge file stops promptly.
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrImportCancelled
		}

		record := make(domain.ImportRecord, len(header))
		for i, fieldID := range fieldByIndex {
			if fieldID == "" || i >= len(row) {
				continue
			}
			if value := row[i]; value != "" {
				record[fieldID] = value
			}
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

// chunk partitions records into batches of at most size.
func chunk(records []domain.ImportRecord, size int) [][]domain.ImportRecord {
	if size <= 0 {
		size = 1
	}
	var batches [][]domain.ImportRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
