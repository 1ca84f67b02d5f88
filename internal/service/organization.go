package service

import (
	"context"
	"errors"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"gorm.io/gorm"
)

// OrganizationService creates organizations and manages their member rows.
type OrganizationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOrganizationService creates an OrganizationService.
func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create creates an organization owned by the actor. The owner also gets an
// explicit owner-role membership row in the same transaction.
func (s *OrganizationService) Create(ctx context.Context, actorID, name, slug string) (*model.Organization, error) {
	if name == "" || slug == "" {
		return nil, apperr.New(apperr.KindInvalid, "name and slug are required")
	}

	var org model.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org = model.Organization{
			Name:    name,
			Slug:    slug,
			OwnerID: actorID,
		}
		if err := tx.Create(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.New(apperr.KindConflict, "slug already exists")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to create organization", err)
		}

		member := model.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         actorID,
			Role:           model.OrgRoleOwner,
		}
		if err := tx.Create(&member).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to create owner membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Get loads an organization the actor belongs to.
func (s *OrganizationService) Get(ctx context.Context, orgID, actorID string) (*model.Organization, error) {
	return RequireOrgRole(s.db.WithContext(ctx), orgID, actorID, model.OrgRoleMember)
}

// ListMine returns the organizations the user is a member of, newest first.
func (s *OrganizationService) ListMine(ctx context.Context, userID string) ([]model.Organization, error) {
	var orgs []model.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.created_at DESC").
		Find(&orgs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list organizations", err)
	}
	return orgs, nil
}

// AddMember adds a user to the organization. Owner only. Adding an existing
// member updates the role instead of erroring.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, actorID, userID string, role model.OrgRole) (*model.OrganizationMember, error) {
	var member model.OrganizationMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireOrgRole(tx, orgID, actorID, model.OrgRoleOwner); err != nil {
			return err
		}

		var target model.User
		if err := tx.First(&target, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "user not found")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to load user", err)
		}

		err := tx.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
		switch {
		case err == nil:
			member.Role = role
			if err := tx.Model(&member).Update("role", role).Error; err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to update member role", err)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = model.OrganizationMember{
				OrganizationID: orgID,
				UserID:         userID,
				Role:           role,
			}
			if err := tx.Create(&member).Error; err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to add member", err)
			}
			return nil
		default:
			return apperr.Wrap(apperr.KindInternal, "failed to load membership", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns the organization's membership rows. Any member may
// list.
func (s *OrganizationService) ListMembers(ctx context.Context, orgID, actorID string) ([]model.OrganizationMember, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireOrgRole(db, orgID, actorID, model.OrgRoleMember); err != nil {
		return nil, err
	}

	var members []model.OrganizationMember
	err := db.Where("organization_id = ?", orgID).Order("created_at ASC").Find(&members).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list members", err)
	}
	return members, nil
}
