package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type inviteFixture struct {
	svc     *InviteService
	owner   *model.User
	member  *model.User
	invitee *model.User
	org     *model.Organization
}

func newInviteFixture(t *testing.T) (*inviteFixture, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	owner := createUser(t, db, "Owner", "owner@example.com")
	member := createUser(t, db, "Member", "member@example.com")
	invitee := createUser(t, db, "Invitee", "invitee@example.com")
	org := createOrg(t, db, owner, "Acme", "acme")
	addOrgMember(t, db, org, member, model.OrgRoleMember)

	return &inviteFixture{
		svc:     NewInviteService(db, testHasher, 7*24*time.Hour),
		owner:   owner,
		member:  member,
		invitee: invitee,
		org:     org,
	}, db
}

func TestInviteCreate(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "Invitee@Example.com", model.InviteRoleMember)
	require.NoError(t, err)
	assert.Equal(t, "invitee@example.com", issued.Invite.Email)
	assert.Equal(t, model.InviteStatusPending, issued.Invite.Status)
	assert.True(t, strings.HasPrefix(issued.Token, "oi_"))
	assert.True(t, strings.HasPrefix(issued.Token, issued.Invite.TokenPrefix))
	assert.Contains(t, issued.AcceptLink, issued.Invite.ID)
	assert.Contains(t, issued.AcceptLink, issued.Token)
}

func TestInviteCreateDuplicatePending(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	_, err = fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleAdmin)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestInviteCreateForCurrentMember(t *testing.T) {
	fx, _ := newInviteFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.org.ID, fx.owner.ID, fx.member.Email, model.InviteRoleMember)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorContains(t, err, "already an organization member")
}

func TestInviteCreateRequiresAdmin(t *testing.T) {
	fx, _ := newInviteFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.org.ID, fx.member.ID, "invitee@example.com", model.InviteRoleMember)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestInviteResendRotatesToken(t *testing.T) {
	fx, db := newInviteFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	rotated, err := fx.svc.Resend(ctx, first.Invite.ID, fx.owner.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, rotated.Token)
	assert.Equal(t, first.Invite.ID, rotated.Invite.ID)

	// the old token dies the moment the rotation commits
	_, err = fx.svc.Accept(ctx, first.Invite.ID, first.Token, fx.invitee)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.ErrorContains(t, err, "invalid invite token")

	accepted, err := fx.svc.Accept(ctx, rotated.Invite.ID, rotated.Token, fx.invitee)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedByUserID)
	assert.Equal(t, fx.invitee.ID, *accepted.AcceptedByUserID)

	var membership model.OrganizationMember
	require.NoError(t, db.Where("organization_id = ? AND user_id = ?", fx.org.ID, fx.invitee.ID).
		First(&membership).Error)
	assert.Equal(t, model.OrgRoleMember, membership.Role)

	// a consumed invite cannot be accepted twice
	_, err = fx.svc.Accept(ctx, rotated.Invite.ID, rotated.Token, fx.invitee)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorContains(t, err, "invite is accepted")
}

func TestInviteAcceptExpired(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	fx.svc.now = fixedClock(issued.Invite.ExpiresAt.Add(time.Minute))
	_, err = fx.svc.Accept(ctx, issued.Invite.ID, issued.Token, fx.invitee)
	require.Error(t, err)
	assert.Equal(t, apperr.KindGone, apperr.KindOf(err))
}

func TestInviteAcceptEmailMismatch(t *testing.T) {
	fx, db := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	other := createUser(t, db, "Other", "other@example.com")
	_, err = fx.svc.Accept(ctx, issued.Invite.ID, issued.Token, other)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.ErrorContains(t, err, "does not match")
}

func TestInviteAcceptUnknown(t *testing.T) {
	fx, _ := newInviteFixture(t)

	_, err := fx.svc.Accept(context.Background(), "no-such-invite", "oi_whatever", fx.invitee)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInviteAdminRoleGrantsOrgAdmin(t *testing.T) {
	fx, db := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleAdmin)
	require.NoError(t, err)

	_, err = fx.svc.Accept(ctx, issued.Invite.ID, issued.Token, fx.invitee)
	require.NoError(t, err)

	var membership model.OrganizationMember
	require.NoError(t, db.Where("organization_id = ? AND user_id = ?", fx.org.ID, fx.invitee.ID).
		First(&membership).Error)
	assert.Equal(t, model.OrgRoleAdmin, membership.Role)
}

func TestInviteRevoke(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	revoked, err := fx.svc.Revoke(ctx, issued.Invite.ID, fx.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)

	// no transition, rotation or accept out of a terminal state
	_, err = fx.svc.Resend(ctx, issued.Invite.ID, fx.owner.ID)
	assert.ErrorContains(t, err, "invite is revoked")

	_, err = fx.svc.Accept(ctx, issued.Invite.ID, issued.Token, fx.invitee)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = fx.svc.Revoke(ctx, issued.Invite.ID, fx.owner.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestInviteRevokedEmailCanBeReinvited(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	_, err = fx.svc.Revoke(ctx, issued.Invite.ID, fx.owner.ID)
	require.NoError(t, err)

	// only pending invites block re-invitation
	again, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Invite.ID, again.Invite.ID)
}

func TestInviteListNewestFirst(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	fx.svc.now = fixedClock(base)
	older, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "a@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	fx.svc.now = fixedClock(base.Add(time.Minute))
	newer, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "b@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	invites, err := fx.svc.List(ctx, fx.org.ID, fx.owner.ID)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	assert.Equal(t, newer.Invite.ID, invites[0].ID)
	assert.Equal(t, older.Invite.ID, invites[1].ID)

	// plain members cannot see invite state
	_, err = fx.svc.List(ctx, fx.org.ID, fx.member.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestInviteInsertConflictClassification(t *testing.T) {
	fx, _ := newInviteFixture(t)
	ctx := context.Background()

	// no pending invite for the email: the duplicate can only be a token
	// hash collision, which the caller should retry
	err := fx.svc.classifyInviteInsertConflict(ctx, fx.org.ID, "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorContains(t, err, "retry")

	_, err = fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	err = fx.svc.classifyInviteInsertConflict(ctx, fx.org.ID, "invitee@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorContains(t, err, "pending invite already exists")
}

func TestInvitePendingUniquenessEnforcedByIndex(t *testing.T) {
	fx, db := newInviteFixture(t)
	ctx := context.Background()

	issued, err := fx.svc.Create(ctx, fx.org.ID, fx.owner.ID, "invitee@example.com", model.InviteRoleMember)
	require.NoError(t, err)

	// a racing insert that slips past the read is caught by the partial index
	dup := model.OrganizationInvite{
		OrganizationID: fx.org.ID,
		Email:          issued.Invite.Email,
		Role:           model.InviteRoleMember,
		Status:         model.InviteStatusPending,
		TokenPrefix:    "oi_xxxxxxx",
		TokenHash:      "another-hash",
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
		CreatedAt:      time.Now().UTC(),
	}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
