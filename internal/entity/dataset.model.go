package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Dataset is one unit of ingestion: an uploaded tabular file plus, once the
// mapping step has run, the confirmed column map (canonical field -> source
// header). A nil ColumnMap means "not yet mapped".
type Dataset struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	SessionID      uuid.UUID         `json:"session_id" gorm:"type:uuid;not null;index"`
	Name           string            `json:"name" gorm:"type:varchar(255);not null"`
	SourceFilename string            `json:"source_filename" gorm:"type:varchar(255);not null"`
	StoredPath     string            `json:"stored_path" gorm:"type:varchar(512);not null"`
	DataType       string            `json:"data_type" gorm:"type:varchar(100);default:generic"`
	ColumnMap      datatypes.JSONMap `json:"column_map"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	Records []Record `json:"-" gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE"`
}

// ColumnMapStrings returns the confirmed column map as a plain string map.
func (d *Dataset) ColumnMapStrings() map[string]string {
	if len(d.ColumnMap) == 0 {
		return nil
	}
	out := make(map[string]string, len(d.ColumnMap))
	for field, col := range d.ColumnMap {
		if s, ok := col.(string); ok && s != "" {
			out[field] = s
		}
	}
	return out
}

// SetColumnMap stores a string column map on the dataset.
func (d *Dataset) SetColumnMap(m map[string]string) {
	jm := make(datatypes.JSONMap, len(m))
	for field, col := range m {
		jm[field] = col
	}
	d.ColumnMap = jm
}
