package session

import (
	"context"
	"errors"

	"github.com/timmy/gridport/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists session records in the cache database. This is the
// "local structured cache" tier the recovery manager consults after the
// in-memory cache.
type GormStore struct {
	db       *gorm.DB
	maxBytes int
}

// NewGormStore wraps a database handle. maxBytes <= 0 disables the quota.
func NewGormStore(db *gorm.DB, maxBytes int) *GormStore {
	return &GormStore{db: db, maxBytes: maxBytes}
}

func (s *GormStore) Save(ctx context.Context, record *domain.FileSessionRecord) error {
	if s.maxBytes > 0 && len(record.Content) > s.maxBytes {
		return domain.ErrQuotaExceeded
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (s *GormStore) Get(ctx context.Context, recordID string) (*domain.FileSessionRecord, error) {
	var record domain.FileSessionRecord
	err := s.db.WithContext(ctx).First(&record, "record_id = ?", recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) Delete(ctx context.Context, recordID string) error {
	return s.db.WithContext(ctx).
		Delete(&domain.FileSessionRecord{}, "record_id = ?", recordID).Error
}
