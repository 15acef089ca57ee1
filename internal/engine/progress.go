package engine

import (
	"time"

	"github.com/timmy/gridport/internal/domain"
)

// progressTracker derives speed and time-remaining figures for snapshots.
// Mutated only by the goroutine driving the batch loop.
type progressTracker struct {
	start        time.Time
	total        int
	totalBatches int
	strategy     domain.ImportStrategy
	sink         domain.ProgressSink
}

func newProgressTracker(total, totalBatches int, strategy domain.ImportStrategy, sink domain.ProgressSink) *progressTracker {
	return &progressTracker{
		start:        time.Now(),
		total:        total,
		totalBatches: totalBatches,
		strategy:     strategy,
		sink:         sink,
	}
}

// emit publishes a snapshot for the work done so far.
func (t *progressTracker) emit(current, failed, currentBatch int) {
	if t.sink == nil {
		return
	}

	elapsed := time.Since(t.start).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(current) / elapsed
	}
	remaining := t.total - current
	var eta float64
	if speed > 0 {
		eta = float64(remaining) / speed
	}
	percentage := 0
	if t.total > 0 {
		percentage = current * 100 / t.total
	}

	t.sink(domain.ProgressSnapshot{
		Current:              current,
		Total:                t.total,
		Percentage:           percentage,
		Speed:                speed,
		Remaining:            remaining,
		EstimatedTimeRemains: eta,
		CurrentBatch:         currentBatch,
		TotalBatches:         t.totalBatches,
		Failed:               failed,
		Strategy:             t.strategy,
	})
}
