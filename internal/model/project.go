package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project belongs to exactly one organization; the organization id is
// immutable after creation. OwnerID records the creator.
type Project struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;index;not null"`
	OwnerID        string    `json:"owner_id" gorm:"type:uuid;index;not null"`
	Name           string    `json:"name" gorm:"type:varchar(200);not null"`
	Slug           string    `json:"slug" gorm:"type:varchar(200);uniqueIndex;not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate hook assigns a fresh id
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
