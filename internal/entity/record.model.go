package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Record is one reconciled row. Canonical fields are nullable: nil means
// the source never provided a value. Raw holds the most recently parsed
// source row verbatim (keyed by source header) and is replaced wholesale on
// every ingestion pass; ExtensionFields accumulates values from unmapped
// headers and is merged key-by-key instead.
type Record struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	DatasetID uuid.UUID `json:"dataset_id" gorm:"type:uuid;not null;uniqueIndex:idx_record_dataset_key"`
	RecordKey string    `json:"record_key" gorm:"type:varchar(255);not null;uniqueIndex:idx_record_dataset_key"`

	DateOfService  *time.Time `json:"date_of_service"`
	Location       *string    `json:"location" gorm:"type:varchar(255)"`
	MRN            *string    `json:"mrn" gorm:"column:mrn;type:varchar(255);index"`
	FirstName      *string    `json:"first_name" gorm:"type:varchar(255)"`
	LastName       *string    `json:"last_name" gorm:"type:varchar(255)"`
	ReasonForVisit *string    `json:"reason_for_visit" gorm:"type:text"`

	Points          *float64 `json:"points"`
	Percent         *float64 `json:"percent"`
	Category        *string  `json:"category" gorm:"type:varchar(255)"`
	PCaConfirmed    *bool    `json:"pca_confirmed" gorm:"column:pca_confirmed"`
	GleasonGrade    *string  `json:"gleason_grade" gorm:"type:varchar(255)"`
	AgeGroup        *string  `json:"age_group" gorm:"type:varchar(255)"`
	FamilyHistory   *string  `json:"family_history" gorm:"type:varchar(255)"`
	Race            *string  `json:"race" gorm:"type:varchar(255)"`
	GeneticMutation *string  `json:"genetic_mutation" gorm:"type:varchar(255)"`

	Raw             datatypes.JSONMap `json:"raw"`
	ExtensionFields datatypes.JSONMap `json:"extension_fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MRNValue returns the record's MRN or "".
func (r *Record) MRNValue() string {
	if r.MRN == nil {
		return ""
	}
	return *r.MRN
}

func (r *Record) stringField(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FirstNameValue returns the record's first name or "".
func (r *Record) FirstNameValue() string { return r.stringField(r.FirstName) }

// LastNameValue returns the record's last name or "".
func (r *Record) LastNameValue() string { return r.stringField(r.LastName) }
