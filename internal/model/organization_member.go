package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationMember maps a user to an organization with a role. Unique per
// (organization, user).
type OrganizationMember struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;uniqueIndex:uq_org_members;not null"`
	UserID         string    `json:"user_id" gorm:"type:uuid;uniqueIndex:uq_org_members;not null"`
	Role           OrgRole   `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate hook assigns a fresh id
func (m *OrganizationMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
