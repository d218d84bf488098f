package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Urology-AI/data-manager/internal/entity"
)

// RecordStore is the persistence contract the engine needs. All lookups are
// scoped to one dataset; Find methods return (nil, nil) when no record
// matches. The store is expected to give read-your-writes consistency
// within one ingestion pass.
type RecordStore interface {
	FindByKey(ctx context.Context, datasetID uuid.UUID, key string) (*entity.Record, error)
	FindByMRN(ctx context.Context, datasetID uuid.UUID, mrn string) (*entity.Record, error)
	Create(ctx context.Context, r *entity.Record) error
	Update(ctx context.Context, r *entity.Record) error
}

// GormStore is the production RecordStore over the application database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByKey(ctx context.Context, datasetID uuid.UUID, key string) (*entity.Record, error) {
	var rec entity.Record
	err := s.db.WithContext(ctx).
		Where("dataset_id = ? AND record_key = ?", datasetID, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) FindByMRN(ctx context.Context, datasetID uuid.UUID, mrn string) (*entity.Record, error) {
	var rec entity.Record
	err := s.db.WithContext(ctx).
		Where("dataset_id = ? AND mrn = ?", datasetID, mrn).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) Create(ctx context.Context, r *entity.Record) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) Update(ctx context.Context, r *entity.Record) error {
	return s.db.WithContext(ctx).Save(r).Error
}
