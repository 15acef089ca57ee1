package domain

// ImportRecord is one destination row keyed by field identifier. It never
// holds an entry for an ignored or unmapped column, and never holds an
// empty-string value; empty values are dropped, not sent.
type ImportRecord map[string]string

// FailedRecord pairs a record that could not be created with the reason.
type FailedRecord struct {
	Data  ImportRecord `json:"data"`
	Error string       `json:"error"`
}

// BatchOutcome accumulates the result of one submitted batch.
// Attempted == SuccessCount + FailedCount always holds.
type BatchOutcome struct {
	SuccessCount  int
	FailedCount   int
	FailedRecords []FailedRecord
}

// Attempted returns the number of records this batch accounted for.
func (o *BatchOutcome) Attempted() int {
	return o.SuccessCount + o.FailedCount
}

// Merge folds another outcome into this one.
func (o *BatchOutcome) Merge(other BatchOutcome) {
	o.SuccessCount += other.SuccessCount
	o.FailedCount += other.FailedCount
	o.FailedRecords = append(o.FailedRecords, other.FailedRecords...)
}

// ImportResult is the terminal summary of one import run.
type ImportResult struct {
	TableID       string         `json:"table_id"`
	TableName     string         `json:"table_name"`
	Attempted     int            `json:"attempted"`
	Created       int            `json:"created"`
	Updated       int            `json:"updated"`
	Failed        int            `json:"failed"`
	FailedRecords []FailedRecord `json:"failed_records,omitempty"`
	// FailureReasons groups failures by error text so the summary can show
	// class/frequency without dumping every record.
	FailureReasons map[string]int `json:"failure_reasons,omitempty"`
	// VerifiedRows is the row count observed by the verification step,
	// -1 when verification was skipped or failed.
	VerifiedRows int `json:"verified_rows"`
}

// SummarizeFailures rebuilds FailureReasons from FailedRecords.
func (r *ImportResult) SummarizeFailures() {
	if len(r.FailedRecords) == 0 {
		r.FailureReasons = nil
		return
	}
	reasons := make(map[string]int, 4)
	for _, fr := range r.FailedRecords {
		reasons[fr.Error]++
	}
	r.FailureReasons = reasons
}
