// Package engine orchestrates the bulk load of mapped records into a
// provisioned destination table. Volume selects the strategy: small files
// run batches one at a time, large files submit fixed-size cohorts of
// batches concurrently. A run-scoped circuit breaker permanently abandons
// atomic bulk creation after repeated failures and routes the remainder of
// the run through bounded per-record fan-out.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
	"golang.org/x/sync/errgroup"
)

// RecordAPI is the slice of the datastore client the engine submits
// through.
type RecordAPI interface {
	BulkCreateRecords(ctx context.Context, tableID string, records []datastore.RecordPayload, withTypecast bool) ([]datastore.Record, error)
	CreateRecord(ctx context.Context, tableID string, record datastore.RecordPayload) (*datastore.Record, error)
	ListRecords(ctx context.Context, tableID string, pageSize int, offset string) (*datastore.RecordPage, error)
}

// CredentialSource refreshes the credential mid-run. May be nil when the
// deployment only uses the static token for row operations.
type CredentialSource interface {
	EnsureFresh(ctx context.Context) (string, error)
	Invalidate()
}

// Engine creates per-run executors.
type Engine struct {
	api    RecordAPI
	tokens CredentialSource
	cfg    config.ImportConfig
}

// New creates an Engine.
func New(api RecordAPI, tokens CredentialSource, cfg config.ImportConfig) *Engine {
	return &Engine{api: api, tokens: tokens, cfg: cfg}
}

// Input is everything one run needs.
type Input struct {
	Rows      [][]string
	Header    []string
	Mapping   []domain.ColumnMapping
	FieldMap  domain.FieldMap
	TableID   string
	TableName string
	Sink      domain.ProgressSink
}

// run carries the mutable state of one import run. The circuit breaker
// lives here, never on the Engine, so a new run always starts clean.
type run struct {
	api    RecordAPI
	tokens CredentialSource
	cfg    config.ImportConfig

	mu           sync.Mutex
	bulkDisabled bool
	bulkFailures int
}

// Run executes one import. Cancellation of ctx stops the run promptly with
// domain.ErrImportCancelled; results of in-flight requests are discarded.
func (e *Engine) Run(ctx context.Context, in *Input) (*domain.ImportResult, error) {
	records, err := buildRecords(ctx, in.Rows, in.Header, in.Mapping, in.FieldMap)
	if err != nil {
		return nil, err
	}

	batches := chunk(records, e.cfg.BatchSize)
	strategy := domain.StrategyStandard
	if len(records) > e.cfg.LargeFileThreshold {
		strategy = domain.StrategyParallelBulk
	}

	logger.With(logger.Fields{
		logger.FieldTableID:  in.TableID,
		logger.FieldStrategy: string(strategy),
		logger.FieldCount:    len(records),
	}).Info(ctx, "Starting import run: %d records in %d batches", len(records), len(batches))

	r := &run{api: e.api, tokens: e.tokens, cfg: e.cfg}
	tracker := newProgressTracker(len(records), len(batches), strategy, in.Sink)

	var outcome domain.BatchOutcome
	switch strategy {
	case domain.StrategyParallelBulk:
		outcome, err = r.runParallel(ctx, in.TableID, batches, tracker)
	default:
		outcome, err = r.runSequential(ctx, in.TableID, batches, tracker)
	}
	if err != nil {
		return nil, err
	}

	result := &domain.ImportResult{
		TableID:       in.TableID,
		TableName:     in.TableName,
		Attempted:     outcome.Attempted(),
		Created:       outcome.SuccessCount,
		Failed:        outcome.FailedCount,
		FailedRecords: outcome.FailedRecords,
		VerifiedRows:  -1,
	}
	result.SummarizeFailures()

	logger.With(logger.Fields{
		logger.FieldTableID: in.TableID,
		logger.FieldCount:   result.Created,
	}).Info(ctx, "Import run finished: %d attempted, %d created, %d failed",
		result.Attempted, result.Created, result.Failed)
	return result, nil
}

// runSequential submits batches one at a time. Throttling kicks in only
// when the observed failure ratio crosses the configured threshold.
func (r *run) runSequential(ctx context.Context, tableID string, batches [][]domain.ImportRecord, tracker *progressTracker) (domain.BatchOutcome, error) {
	var total domain.BatchOutcome

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return total, domain.ErrImportCancelled
		}

		outcome := r.submitBatch(ctx, tableID, batch)
		total.Merge(outcome)
		tracker.emit(total.Attempted(), total.FailedCount, i+1)

		if err := ctx.Err(); err != nil {
			return total, domain.ErrImportCancelled
		}

		if r.cfg.InterBatchDelayMs > 0 && r.failureRatio(&total) > r.cfg.FailureRatioThreshold {
			select {
			case <-time.After(time.Duration(r.cfg.InterBatchDelayMs) * time.Millisecond):
			case <-ctx.Done():
				return total, domain.ErrImportCancelled
			}
		}
	}
	return total, nil
}

// runParallel groups consecutive batches into fixed-size cohorts submitted
// concurrently, awaiting each whole cohort before the next. The credential
// is refreshed proactively every few cohorts so long imports do not die at
// the 401 cliff.
func (r *run) runParallel(ctx context.Context, tableID string, batches [][]domain.ImportRecord, tracker *progressTracker) (domain.BatchOutcome, error) {
	var total domain.BatchOutcome
	cohortSize := r.cfg.CohortSize
	if cohortSize <= 0 {
		cohortSize = 6
	}

	cohort := 0
	for start := 0; start < len(batches); start += cohortSize {
		if err := ctx.Err(); err != nil {
			return total, domain.ErrImportCancelled
		}
		cohort++

		if r.tokens != nil && r.cfg.TokenRefreshCohorts > 0 && cohort > 1 && (cohort-1)%r.cfg.TokenRefreshCohorts == 0 {
			if _, err := r.tokens.EnsureFresh(ctx); err != nil {
				logger.CtxWarn(ctx, "Proactive credential refresh failed in cohort %d: %v", cohort, err)
			}
		}

		end := start + cohortSize
		if end > len(batches) {
			end = len(batches)
		}

		outcomes := make([]domain.BatchOutcome, end-start)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx := i
			g.Go(func() error {
				outcomes[idx-start] = r.submitBatch(gctx, tableID, batches[idx])
				return nil
			})
		}
		// submitBatch never returns an error; failures are bookkeeping.
		_ = g.Wait()

		for _, o := range outcomes {
			total.Merge(o)
		}
		tracker.emit(total.Attempted(), total.FailedCount, end)

		if err := ctx.Err(); err != nil {
			return total, domain.ErrImportCancelled
		}

		// Courtesy pause between cohorts.
		if r.cfg.CohortPauseMs > 0 && end < len(batches) {
			select {
			case <-time.After(time.Duration(r.cfg.CohortPauseMs) * time.Millisecond):
			case <-ctx.Done():
				return total, domain.ErrImportCancelled
			}
		}
	}
	return total, nil
}

func (r *run) failureRatio(total *domain.BatchOutcome) float64 {
	attempted := total.Attempted()
	if attempted == 0 {
		return 0
	}
	return float64(total.FailedCount) / float64(attempted)
}
