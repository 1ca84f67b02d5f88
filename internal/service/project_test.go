package service

import (
	"context"
	"testing"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")

	project, err := svc.Create(ctx, org.ID, owner.ID, "Widget", "widget")
	require.NoError(t, err)
	assert.Equal(t, org.ID, project.OrganizationID)

	// creator is seeded as a project admin
	var member model.ProjectMember
	require.NoError(t, db.Where("project_id = ? AND user_id = ?", project.ID, owner.ID).First(&member).Error)
	assert.Equal(t, model.ProjectRoleAdmin, member.Role)
}

func TestProjectCreateRequiresOrgAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	member := createUser(t, db, "Member", "member@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")
	addOrgMember(t, db, org, member, model.OrgRoleMember)

	_, err := svc.Create(ctx, org.ID, member.ID, "Widget", "widget")
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestProjectCreateDuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")

	_, err := svc.Create(ctx, org.ID, owner.ID, "Widget", "widget")
	require.NoError(t, err)

	_, err = svc.Create(ctx, org.ID, owner.ID, "Widget Again", "widget")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestProjectGetAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	dev := createUser(t, db, "Dev", "dev@example.com")
	outsider := createUser(t, db, "Outsider", "outsider@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")
	addOrgMember(t, db, org, dev, model.OrgRoleMember)
	project := createProject(t, db, org, owner, "Widget", "widget")
	addProjectMember(t, db, project, dev, model.ProjectRoleMember)

	got, err := svc.Get(ctx, project.ID, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)

	_, err = svc.Get(ctx, project.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	projects, err := svc.List(ctx, org.ID, dev.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	_, err = svc.List(ctx, org.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
