package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldRunID identifies one import run end to end.
	FieldRunID = "run_id"

	// FieldRecordID identifies a file session record.
	FieldRecordID = "record_id"

	// FieldTableID identifies the destination table.
	FieldTableID = "table_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldStrategy is the active batch-execution strategy.
	FieldStrategy = "strategy"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldBatch is the current batch index.
	FieldBatch = "batch"

	// FieldCount is a generic count field.
	FieldCount = "count"

	// FieldSize is the data size in bytes.
	FieldSize = "size"

	// FieldStatus is the operation status.
	FieldStatus = "status"
)
