package engine

import (
	"context"

	"github.com/timmy/gridport/internal/logger"
)

// Verify pages through the destination table and returns the observed row
// count. Page size and a maximum page count bound the walk so a
// misbehaving listing endpoint cannot spin forever. A count mismatch is the
// caller's advisory concern, never a run failure.
func (e *Engine) Verify(ctx context.Context, tableID string) (int, error) {
	pageSize := e.cfg.VerifyPageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	maxPages := e.cfg.VerifyMaxPages
	if maxPages <= 0 {
		maxPages = 200
	}

	total := 0
	offset := ""
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		result, err := e.api.ListRecords(ctx, tableID, pageSize, offset)
		if err != nil {
			return total, err
		}
		total += len(result.Records)
		if result.Offset == "" || len(result.Records) == 0 {
			return total, nil
		}
		offset = result.Offset
	}
	logger.CtxWarn(ctx, "Verification stopped at page cap (%d pages) for table %s", maxPages, tableID)
	return total, nil
}
