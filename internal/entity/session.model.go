package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is the tenant boundary: every dataset and record belongs to
// exactly one session, and requests only see the session their token names.
type Session struct {
	gorm.Model
	ID   uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	Name string    `json:"name" gorm:"type:varchar(255)"`
}
