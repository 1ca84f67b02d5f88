package service

import (
	"context"
	"errors"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"gorm.io/gorm"
)

// MemberService manages project membership rows. Policy: project admins and
// org admins/owners may mutate; cross-tenant membership is disallowed.
type MemberService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMemberService creates a MemberService.
func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Add adds a user to the project, or updates the role if the row already
// exists. The target user must already belong to the owning organization.
func (s *MemberService) Add(ctx context.Context, projectID, actorID, userID string, role model.ProjectRole) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := RequireProjectManager(tx, projectID, actorID)
		if err != nil {
			return err
		}

		var target model.User
		if err := tx.First(&target, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "user not found")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to load user", err)
		}

		var org model.Organization
		if err := tx.First(&org, "id = ?", project.OrganizationID).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to load owning organization", err)
		}
		if _, ok := ResolveOrgRole(tx, &org, userID); !ok {
			return apperr.New(apperr.KindConflict, "user is not a member of the owning organization")
		}

		err = tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
		switch {
		case err == nil:
			member.Role = role
			if err := tx.Model(&model.ProjectMember{}).
				Where("project_id = ? AND user_id = ?", projectID, userID).
				Update("role", role).Error; err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to update member role", err)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = model.ProjectMember{
				ProjectID: projectID,
				UserID:    userID,
				Role:      role,
				CreatedAt: s.now(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to add project member", err)
			}
			return nil
		default:
			return apperr.Wrap(apperr.KindInternal, "failed to load project membership", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateRole changes an existing member's role.
func (s *MemberService) UpdateRole(ctx context.Context, projectID, actorID, userID string, role model.ProjectRole) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "project member not found")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to load project membership", err)
		}

		member.Role = role
		if err := tx.Model(&model.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Update("role", role).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update member role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Remove deletes a membership row. Removing a non-member reports not-found.
func (s *MemberService) Remove(ctx context.Context, projectID, actorID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to remove project member", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindNotFound, "project member not found")
		}
		return nil
	})
}

// List returns the project's membership rows, oldest first. Any project
// member can list.
func (s *MemberService) List(ctx context.Context, projectID, actorID string) ([]model.ProjectMember, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireProjectRole(db, projectID, actorID, model.ProjectRoleMember); err != nil {
		return nil, err
	}

	var members []model.ProjectMember
	err := db.Where("project_id = ?", projectID).Order("created_at ASC").Find(&members).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list project members", err)
	}
	return members, nil
}

// My returns the caller's own membership row.
func (s *MemberService) My(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireProjectRole(db, projectID, userID, model.ProjectRoleMember); err != nil {
		return nil, err
	}

	var member model.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// org owner override passes the role check without a row
			return nil, apperr.New(apperr.KindNotFound, "project member not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load project membership", err)
	}
	return &member, nil
}
