package service

import (
	"context"
	"testing"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")

	org, err := svc.Create(ctx, owner.ID, "Acme", "acme")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, org.OwnerID)
	assert.Equal(t, "acme", org.Slug)

	// creator is seeded as an owner-role member
	var member model.OrganizationMember
	require.NoError(t, db.Where("organization_id = ? AND user_id = ?", org.ID, owner.ID).First(&member).Error)
	assert.Equal(t, model.OrgRoleOwner, member.Role)
}

func TestOrganizationCreateDuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")

	_, err := svc.Create(ctx, owner.ID, "Acme", "acme")
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner.ID, "Acme Again", "acme")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestOrganizationGetRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	outsider := createUser(t, db, "Outsider", "outsider@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")

	got, err := svc.Get(ctx, org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	_, err = svc.Get(ctx, org.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestOrganizationListMine(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	other := createUser(t, db, "Other", "other@example.com")

	first := createOrg(t, db, owner, "First", "first")
	second := createOrg(t, db, owner, "Second", "second")
	createOrg(t, db, other, "Theirs", "theirs")

	orgs, err := svc.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	ids := []string{orgs[0].ID, orgs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestOrganizationAddMember(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	admin := createUser(t, db, "Admin", "admin@example.com")
	target := createUser(t, db, "Target", "target@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")
	addOrgMember(t, db, org, admin, model.OrgRoleAdmin)

	member, err := svc.AddMember(ctx, org.ID, owner.ID, target.ID, model.OrgRoleMember)
	require.NoError(t, err)
	assert.Equal(t, model.OrgRoleMember, member.Role)

	// adding again updates the role in place
	member, err = svc.AddMember(ctx, org.ID, owner.ID, target.ID, model.OrgRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.OrgRoleAdmin, member.Role)

	var count int64
	require.NoError(t, db.Model(&model.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", org.ID, target.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// only the owner may add members
	_, err = svc.AddMember(ctx, org.ID, admin.ID, target.ID, model.OrgRoleMember)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// target must exist
	_, err = svc.AddMember(ctx, org.ID, owner.ID, "no-such-user", model.OrgRoleMember)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestOrganizationListMembers(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrganizationService(db)
	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	member := createUser(t, db, "Member", "member@example.com")
	outsider := createUser(t, db, "Outsider", "outsider@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")
	addOrgMember(t, db, org, member, model.OrgRoleMember)

	members, err := svc.ListMembers(ctx, org.ID, member.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.ListMembers(ctx, org.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
