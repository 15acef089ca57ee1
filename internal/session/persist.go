package session

import (
	"context"
	"errors"
	"strings"

	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/parser"
)

// headerOnlyLines is how many leading lines a header-only record keeps:
// enough to discover column names, never row data.
const headerOnlyLines = 2

// Persist writes a session record, escalating through smaller content
// shapes when the store reports quota pressure: full content, then a
// truncated copy carrying the truncation marker, then header-only, then a
// content-free record flagged requiresReupload. The record is mutated in
// place so the caller sees the shape that actually landed.
func Persist(ctx context.Context, store Store, record *domain.FileSessionRecord, fullContent string) error {
	record.TotalLines = parser.CountLines(fullContent)
	record.OriginalSize = int64(len(fullContent))

	// Full copy.
	record.Content = fullContent
	record.IsOptimized = false
	record.IsHeaderOnly = false
	record.RequiresReupload = false
	err := store.Save(ctx, record)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return err
	}

	// Truncated copy with an explicit marker so recovery knows to escalate.
	logger.CtxWarn(ctx, "Session store quota hit for %s (%d bytes), storing truncated copy", record.FileName, len(fullContent))
	record.Content = truncateToHalf(fullContent) + domain.TruncationMarker
	record.IsOptimized = true
	err = store.Save(ctx, record)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return err
	}

	// Header-only copy: column discovery still works, row data does not.
	logger.CtxWarn(ctx, "Truncated copy still over quota for %s, storing header only", record.FileName)
	record.Content = leadingLines(fullContent, headerOnlyLines)
	record.IsOptimized = true
	record.IsHeaderOnly = true
	err = store.Save(ctx, record)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return err
	}

	// Last resort: keep only the metadata and demand a re-upload if every
	// recovery tier later comes up empty.
	logger.CtxWarn(ctx, "Header-only copy over quota for %s, storing metadata only", record.FileName)
	record.Content = ""
	record.IsHeaderOnly = false
	record.RequiresReupload = true
	return store.Save(ctx, record)
}

// truncateToHalf keeps the leading half of the content, cut at a line
// boundary so the stored copy stays parseable.
func truncateToHalf(content string) string {
	half := len(content) / 2
	if half == 0 {
		return content
	}
	cut := strings.LastIndex(content[:half], "\n")
	if cut <= 0 {
		return content[:half]
	}
	return content[:cut]
}

// leadingLines returns the first n lines of content.
func leadingLines(content string, n int) string {
	lines := parser.SplitLines(content)
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[:n], "\n")
}
