package service

import (
	"context"
	"errors"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"gorm.io/gorm"
)

// ProjectService creates and lists projects under an organization.
type ProjectService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProjectService creates a ProjectService.
func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create creates a project under the organization. Requires org role admin
// (owner passes via override). The creator becomes an explicit project admin
// member in the same transaction.
func (s *ProjectService) Create(ctx context.Context, orgID, actorID, name, slug string) (*model.Project, error) {
	if name == "" || slug == "" {
		return nil, apperr.New(apperr.KindInvalid, "name and slug are required")
	}

	var project model.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireOrgRole(tx, orgID, actorID, model.OrgRoleAdmin); err != nil {
			return err
		}

		project = model.Project{
			OrganizationID: orgID,
			OwnerID:        actorID,
			Name:           name,
			Slug:           slug,
		}
		if err := tx.Create(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.New(apperr.KindConflict, "slug already exists")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to create project", err)
		}

		member := model.ProjectMember{
			ProjectID: project.ID,
			UserID:    actorID,
			Role:      model.ProjectRoleAdmin,
		}
		if err := tx.Create(&member).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to create project membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Get loads a project the actor can see (project member or org owner).
func (s *ProjectService) Get(ctx context.Context, projectID, actorID string) (*model.Project, error) {
	return RequireProjectRole(s.db.WithContext(ctx), projectID, actorID, model.ProjectRoleMember)
}

// List returns the organization's projects, newest first. Any org member may
// list.
func (s *ProjectService) List(ctx context.Context, orgID, actorID string) ([]model.Project, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireOrgRole(db, orgID, actorID, model.OrgRoleMember); err != nil {
		return nil, err
	}

	var projects []model.Project
	err := db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&projects).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list projects", err)
	}
	return projects, nil
}
