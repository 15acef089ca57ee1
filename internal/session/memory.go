package session

import (
	"context"
	"sync"

	"github.com/timmy/gridport/internal/domain"
)

// MemoryStore is an in-process Store with an optional per-record byte
// budget, mirroring browser session-storage quota behavior. Used in tests
// and as the fallback when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]domain.FileSessionRecord
	maxBytes int
}

// NewMemoryStore creates a MemoryStore. maxBytes <= 0 disables the quota.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]domain.FileSessionRecord),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Save(_ context.Context, record *domain.FileSessionRecord) error {
	if s.maxBytes > 0 && len(record.Content) > s.maxBytes {
		return domain.ErrQuotaExceeded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.RecordID] = *record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, recordID string) (*domain.FileSessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[recordID]; ok {
		copied := rec
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) Delete(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordID)
	return nil
}
