package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the tenant boundary. The owner is implicitly the
// highest-privilege role and does not need an explicit membership row.
type Organization struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(200);uniqueIndex;not null"`
	OwnerID   string    `json:"owner_id" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook assigns a fresh id
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
