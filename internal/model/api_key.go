package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiKey is a project-scoped machine credential. Only the keyed hash of the
// secret is stored; the plaintext is returned once at issue time.
type ApiKey struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID  string     `json:"project_id" gorm:"type:uuid;index;not null"`
	Name       string     `json:"name" gorm:"type:varchar(100);not null"`
	KeyPrefix  string     `json:"key_prefix" gorm:"type:varchar(16);index;not null"`
	KeyHash    string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Scope      string     `json:"scope" gorm:"type:varchar(50);not null;default:'default'"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// BeforeCreate hook assigns a fresh id
func (k *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Revoked reports whether the key has been revoked.
func (k *ApiKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Expired reports whether the key is expired at the given instant.
func (k *ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}
