package service

import (
	"errors"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"gorm.io/gorm"
)

// Role resolution and enforcement. These are pure reads; callers run them on
// the same transaction as any mutation they gate.

// ResolveOrgRole returns the user's effective role in the organization. The
// owner ranks as owner without a membership row.
func ResolveOrgRole(tx *gorm.DB, org *model.Organization, userID string) (model.OrgRole, bool) {
	if org.OwnerID == userID {
		return model.OrgRoleOwner, true
	}

	var member model.OrganizationMember
	err := tx.Where("organization_id = ? AND user_id = ?", org.ID, userID).First(&member).Error
	if err != nil {
		return "", false
	}
	return member.Role, true
}

// RequireOrgRole loads the organization and enforces a minimum role.
func RequireOrgRole(tx *gorm.DB, orgID, userID string, min model.OrgRole) (*model.Organization, error) {
	var org model.Organization
	if err := tx.First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "organization not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load organization", err)
	}

	role, ok := ResolveOrgRole(tx, &org, userID)
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "not an organization member")
	}
	if role.Rank() < min.Rank() {
		return nil, apperr.Newf(apperr.KindForbidden, "requires org role: %s", min)
	}
	return &org, nil
}

// ResolveProjectRole returns the user's effective role in the project. The
// organization owner ranks as project admin everywhere under the org.
func ResolveProjectRole(tx *gorm.DB, project *model.Project, org *model.Organization, userID string) (model.ProjectRole, bool) {
	if org.OwnerID == userID {
		return model.ProjectRoleAdmin, true
	}

	var member model.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", project.ID, userID).First(&member).Error
	if err != nil {
		return "", false
	}
	return member.Role, true
}

// RequireProjectRole loads the project and enforces a minimum role.
func RequireProjectRole(tx *gorm.DB, projectID, userID string, min model.ProjectRole) (*model.Project, error) {
	project, org, err := loadProjectWithOrg(tx, projectID)
	if err != nil {
		return nil, err
	}

	role, ok := ResolveProjectRole(tx, project, org, userID)
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "not a project member")
	}
	if role.Rank() < min.Rank() {
		return nil, apperr.Newf(apperr.KindForbidden, "requires project role: %s", min)
	}
	return project, nil
}

// RequireProjectManager passes for project admins and for organization
// admins/owners, who may manage any project under the org. Used to gate
// project member management and API key lifecycle operations.
func RequireProjectManager(tx *gorm.DB, projectID, userID string) (*model.Project, error) {
	project, org, err := loadProjectWithOrg(tx, projectID)
	if err != nil {
		return nil, err
	}

	if role, ok := ResolveOrgRole(tx, org, userID); ok && role.Rank() >= model.OrgRoleAdmin.Rank() {
		return project, nil
	}

	var member model.ProjectMember
	if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindForbidden, "not a project member")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load project membership", err)
	}
	if member.Role != model.ProjectRoleAdmin {
		return nil, apperr.Newf(apperr.KindForbidden, "requires project role: %s", model.ProjectRoleAdmin)
	}
	return project, nil
}

func loadProjectWithOrg(tx *gorm.DB, projectID string) (*model.Project, *model.Organization, error) {
	var project model.Project
	if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.KindNotFound, "project not found")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to load project", err)
	}

	var org model.Organization
	if err := tx.First(&org, "id = ?", project.OrganizationID).Error; err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to load owning organization", err)
	}
	return &project, &org, nil
}
