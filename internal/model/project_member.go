package model

import "time"

// ProjectMember maps a user to a project with a role. The pair is the
// primary key.
type ProjectMember struct {
	ProjectID string      `json:"project_id" gorm:"type:uuid;primaryKey"`
	UserID    string      `json:"user_id" gorm:"type:uuid;primaryKey"`
	Role      ProjectRole `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	CreatedAt time.Time   `json:"created_at"`
}
