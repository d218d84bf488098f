package utils

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/entity"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrAccessDenied    = errors.New("access denied")
)

// SessionDataset loads a dataset and verifies it belongs to the session.
func SessionDataset(ctx *appcontext.Context, sessionID, datasetID uuid.UUID) (*entity.Dataset, error) {
	var dataset entity.Dataset
	if err := ctx.DB.Where("id = ?", datasetID).First(&dataset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	if dataset.SessionID != sessionID {
		return nil, ErrAccessDenied
	}
	return &dataset, nil
}

// SessionRecord loads a record and verifies its dataset belongs to the
// session.
func SessionRecord(ctx *appcontext.Context, sessionID, recordID uuid.UUID) (*entity.Record, error) {
	var record entity.Record
	if err := ctx.DB.Where("id = ?", recordID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	if _, err := SessionDataset(ctx, sessionID, record.DatasetID); err != nil {
		return nil, err
	}
	return &record, nil
}
