package engine

import (
	"context"
	"sync"

	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
	"golang.org/x/sync/errgroup"
)

// submitBatch loads one batch, preferring a single atomic bulk call and
// falling back to bounded per-record fan-out. It never returns an error:
// every record in the batch ends up counted as either a success or a
// failure.
func (r *run) submitBatch(ctx context.Context, tableID string, batch []domain.ImportRecord) domain.BatchOutcome {
	if r.bulkAllowed() {
		if created, err := r.bulkCreate(ctx, tableID, batch); err == nil {
			return domain.BatchOutcome{SuccessCount: created}
		} else if ctx.Err() != nil {
			// Cancelled mid-call: the cohort/batch boundary turns this into
			// ErrImportCancelled; count nothing.
			return domain.BatchOutcome{}
		} else {
			r.recordBulkFailure(ctx, err)
		}
	}
	return r.createIndividually(ctx, tableID, batch)
}

// bulkAllowed reads the run-scoped circuit breaker.
func (r *run) bulkAllowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.bulkDisabled
}

// recordBulkFailure counts a failed bulk attempt; crossing the limit trips
// the breaker for the remainder of the run. The breaker is monotonic: it
// never re-enables itself.
func (r *run) recordBulkFailure(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkFailures++
	logger.CtxWarn(ctx, "Bulk create failed (%d/%d): %v", r.bulkFailures, r.cfg.BulkFailureLimit, err)
	if !r.bulkDisabled && r.bulkFailures >= r.cfg.BulkFailureLimit {
		r.bulkDisabled = true
		logger.CtxWarn(ctx, "Bulk mode disabled for the remainder of this run, using individual creation")
	}
}

// bulkCreate attempts the atomic bulk call: first with the typecast flag,
// then once without it, since some backends reject the flag outright. A 401
// earns one credential refresh and one retry.
func (r *run) bulkCreate(ctx context.Context, tableID string, batch []domain.ImportRecord) (int, error) {
	payloads := make([]datastore.RecordPayload, len(batch))
	for i, record := range batch {
		payloads[i] = datastore.RecordPayload{Fields: record}
	}

	created, err := r.with401Retry(ctx, func() ([]datastore.Record, error) {
		return r.api.BulkCreateRecords(ctx, tableID, payloads, true)
	})
	if err == nil {
		return len(created), nil
	}
	if ctx.Err() != nil {
		return 0, err
	}

	created, err = r.with401Retry(ctx, func() ([]datastore.Record, error) {
		return r.api.BulkCreateRecords(ctx, tableID, payloads, false)
	})
	if err != nil {
		return 0, err
	}
	return len(created), nil
}

// createIndividually submits each record as its own request with a fixed
// fan-out limit. Per-record failures accumulate; they never abort the
// batch.
func (r *run) createIndividually(ctx context.Context, tableID string, batch []domain.ImportRecord) domain.BatchOutcome {
	concurrency := r.cfg.IndividualConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	var mu sync.Mutex
	var outcome domain.BatchOutcome

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, record := range batch {
		rec := record
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := r.with401Retry(ctx, func() ([]datastore.Record, error) {
				created, err := r.api.CreateRecord(ctx, tableID, datastore.RecordPayload{Fields: rec})
				if err != nil {
					return nil, err
				}
				return []datastore.Record{*created}, nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.FailedCount++
				outcome.FailedRecords = append(outcome.FailedRecords, domain.FailedRecord{
					Data:  rec,
					Error: (&domain.RecordCreateError{Status: datastore.StatusOf(err), Err: err}).Error(),
				})
			} else {
				outcome.SuccessCount++
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcome
}

// with401Retry invalidates the cached credential and retries the call
// exactly once when the downstream answers 401. A second 401 stands.
func (r *run) with401Retry(ctx context.Context, call func() ([]datastore.Record, error)) ([]datastore.Record, error) {
	created, err := call()
	if err == nil || !datastore.IsUnauthorized(err) || r.tokens == nil {
		return created, err
	}
	r.tokens.Invalidate()
	if _, refreshErr := r.tokens.EnsureFresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}
	return call()
}
