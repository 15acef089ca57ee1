package domain

// ImportStrategy identifies which batch-execution strategy a run is using.
// Consumers of ProgressSnapshot switch on this instead of probing which
// optional fields happen to be populated.
type ImportStrategy string

const (
	StrategyStandard     ImportStrategy = "standard"
	StrategyParallelBulk ImportStrategy = "parallel_bulk"
)

// ProgressSnapshot is an ephemeral view of a running import, emitted
// repeatedly during a run. Delivery may be sparse; each snapshot is
// self-contained.
type ProgressSnapshot struct {
	Current              int            `json:"current"`
	Total                int            `json:"total"`
	Percentage           int            `json:"percentage"`
	Speed                float64        `json:"speed"` // records per second
	Remaining            int            `json:"remaining"`
	EstimatedTimeRemains float64        `json:"estimated_seconds_remaining"`
	CurrentBatch         int            `json:"current_batch"`
	TotalBatches         int            `json:"total_batches"`
	Failed               int            `json:"failed"`
	Strategy             ImportStrategy `json:"strategy"`
}

// ProgressSink receives progress snapshots during a run. Implementations
// must be cheap and non-blocking; the engine calls them inline.
type ProgressSink func(ProgressSnapshot)
