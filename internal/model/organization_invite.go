package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteStatus is the lifecycle state of an organization invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// OrganizationInvite is an email invitation into an organization. Accepting
// requires an existing account whose email matches the invite. The partial
// unique index enforces at most one pending invite per (organization, email)
// even under concurrent creation.
type OrganizationInvite struct {
	ID               string       `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID   string       `json:"organization_id" gorm:"type:uuid;index:uq_org_invites_pending,unique,where:status = 'pending';not null"`
	Email            string       `json:"email" gorm:"type:varchar(255);index:uq_org_invites_pending,unique,where:status = 'pending';not null"`
	Role             InviteRole   `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	Status           InviteStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	TokenPrefix      string       `json:"token_prefix" gorm:"type:varchar(16);not null"`
	TokenHash        string       `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt        time.Time    `json:"expires_at" gorm:"not null"`
	InvitedByUserID  *string      `json:"invited_by_user_id,omitempty" gorm:"type:uuid;index"`
	AcceptedByUserID *string      `json:"accepted_by_user_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt        time.Time    `json:"created_at"`
	AcceptedAt       *time.Time   `json:"accepted_at,omitempty"`
	RevokedAt        *time.Time   `json:"revoked_at,omitempty"`
}

// BeforeCreate hook assigns a fresh id
func (i *OrganizationInvite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
