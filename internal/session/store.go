// Package session persists FileSessionRecord across navigations within one
// operator session. Writes may fail under storage-quota pressure; the writer
// then escalates through progressively smaller content shapes rather than
// losing the record entirely.
package session

import (
	"context"

	"github.com/timmy/gridport/internal/domain"
)

// Store is a session-scoped key-value store for file session records.
type Store interface {
	// Save persists a record. Returns domain.ErrQuotaExceeded when the
	// payload does not fit the store's budget.
	Save(ctx context.Context, record *domain.FileSessionRecord) error

	// Get loads a record by ID; returns nil, nil when absent.
	Get(ctx context.Context, recordID string) (*domain.FileSessionRecord, error)

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, recordID string) error
}
