package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/pkg/hashutil"
	"gorm.io/gorm"
)

const (
	inviteTokenTag       = "oi_"
	inviteTokenPrefixLen = 10
)

// IssuedInvite pairs an invite with its plaintext token and accept link,
// returned exactly once on create and resend.
type IssuedInvite struct {
	Invite     *model.OrganizationInvite
	Token      string
	AcceptLink string
}

// InviteService manages the organization invite lifecycle: pending →
// accepted | revoked, with token rotation while pending.
type InviteService struct {
	db   *gorm.DB
	keys *hashutil.KeyedHasher
	ttl  time.Duration
	now  func() time.Time
}

// NewInviteService creates an InviteService. ttl bounds how long a token
// stays acceptable; rotation resets it.
func NewInviteService(db *gorm.DB, keys *hashutil.KeyedHasher, ttl time.Duration) *InviteService {
	return &InviteService{
		db:   db,
		keys: keys,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a pending invite for an email. Caller must be an org
// admin/owner. Inviting a current member or duplicating a pending invite is
// a conflict; the partial unique index backstops the latter under races.
func (s *InviteService) Create(ctx context.Context, orgID, actorID, email string, role model.InviteRole) (*IssuedInvite, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.New(apperr.KindInvalid, "email is required")
	}

	var issued *IssuedInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireOrgRole(tx, orgID, actorID, model.OrgRoleAdmin); err != nil {
			return err
		}

		var user model.User
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			var member model.OrganizationMember
			memberErr := tx.Where("organization_id = ? AND user_id = ?", orgID, user.ID).First(&member).Error
			if memberErr == nil {
				return apperr.New(apperr.KindConflict, "user is already an organization member")
			}
			if !errors.Is(memberErr, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.KindInternal, "failed to load membership", memberErr)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.KindInternal, "failed to look up user", err)
		}

		var pending model.OrganizationInvite
		err = tx.Where("organization_id = ? AND email = ? AND status = ?",
			orgID, email, model.InviteStatusPending).First(&pending).Error
		if err == nil {
			return apperr.New(apperr.KindConflict, "pending invite already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.KindInternal, "failed to look up pending invite", err)
		}

		token, err := hashutil.GenerateSecret(inviteTokenTag)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to generate invite token", err)
		}

		now := s.now()
		invite := model.OrganizationInvite{
			OrganizationID:  orgID,
			Email:           email,
			Role:            role,
			Status:          model.InviteStatusPending,
			TokenPrefix:     hashutil.Prefix(token, inviteTokenPrefixLen),
			TokenHash:       s.keys.Hash(token),
			ExpiresAt:       now.Add(s.ttl),
			InvitedByUserID: &actorID,
			CreatedAt:       now,
		}
		if err := tx.Create(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return s.classifyInviteInsertConflict(ctx, orgID, email)
			}
			return apperr.Wrap(apperr.KindInternal, "failed to create invite", err)
		}

		issued = &IssuedInvite{
			Invite:     &invite,
			Token:      token,
			AcceptLink: buildAcceptLink(invite.ID, token),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Resend rotates the token of a pending invite and extends its expiry. The
// previous token is invalid the instant the rotation commits. The update is
// guarded on status so concurrent transitions cannot clobber each other
// unseen; each caller only ever receives the token its own rotation wrote.
func (s *InviteService) Resend(ctx context.Context, inviteID, actorID string) (*IssuedInvite, error) {
	var issued *IssuedInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.loadInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if _, err := RequireOrgRole(tx, invite.OrganizationID, actorID, model.OrgRoleAdmin); err != nil {
			return err
		}
		if invite.Status != model.InviteStatusPending {
			return apperr.Newf(apperr.KindConflict, "invite is %s", invite.Status)
		}

		token, err := hashutil.GenerateSecret(inviteTokenTag)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to generate invite token", err)
		}

		expiresAt := s.now().Add(s.ttl)
		res := tx.Model(&model.OrganizationInvite{}).
			Where("id = ? AND status = ?", invite.ID, model.InviteStatusPending).
			Updates(map[string]interface{}{
				"token_hash":   s.keys.Hash(token),
				"token_prefix": hashutil.Prefix(token, inviteTokenPrefixLen),
				"expires_at":   expiresAt,
			})
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to rotate invite token", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflictWithCurrentStatus(tx, invite.ID)
		}

		invite.TokenHash = s.keys.Hash(token)
		invite.TokenPrefix = hashutil.Prefix(token, inviteTokenPrefixLen)
		invite.ExpiresAt = expiresAt

		issued = &IssuedInvite{
			Invite:     invite,
			Token:      token,
			AcceptLink: buildAcceptLink(invite.ID, token),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Accept validates the token and adds the user to the organization. The
// token hash is compared first, in constant time, before any state or
// expiry is revealed. Membership insert and invite update commit together.
func (s *InviteService) Accept(ctx context.Context, inviteID, token string, user *model.User) (*model.OrganizationInvite, error) {
	var accepted *model.OrganizationInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.loadInvite(tx, inviteID)
		if err != nil {
			return err
		}

		// token validity first: wrong token must be indistinguishable from
		// wrong token on a consumed invite
		if !s.keys.Matches(token, invite.TokenHash) {
			return apperr.New(apperr.KindForbidden, "invalid invite token")
		}

		if invite.Status != model.InviteStatusPending {
			return apperr.Newf(apperr.KindConflict, "invite is %s", invite.Status)
		}

		now := s.now()
		if !invite.ExpiresAt.After(now) {
			return apperr.New(apperr.KindGone, "invite expired")
		}

		if invite.Email != normalizeEmail(user.Email) {
			return apperr.New(apperr.KindForbidden, "invite email does not match your account")
		}

		var member model.OrganizationMember
		err = tx.Where("organization_id = ? AND user_id = ?", invite.OrganizationID, user.ID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			member = model.OrganizationMember{
				OrganizationID: invite.OrganizationID,
				UserID:         user.ID,
				Role:           invite.Role.OrgRole(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to create membership", err)
			}
		} else if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to load membership", err)
		}

		res := tx.Model(&model.OrganizationInvite{}).
			Where("id = ? AND status = ?", invite.ID, model.InviteStatusPending).
			Updates(map[string]interface{}{
				"status":              model.InviteStatusAccepted,
				"accepted_by_user_id": user.ID,
				"accepted_at":         now,
			})
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to accept invite", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflictWithCurrentStatus(tx, invite.ID)
		}

		invite.Status = model.InviteStatusAccepted
		invite.AcceptedByUserID = &user.ID
		invite.AcceptedAt = &now
		accepted = invite
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Revoke terminates a pending invite.
func (s *InviteService) Revoke(ctx context.Context, inviteID, actorID string) (*model.OrganizationInvite, error) {
	var revoked *model.OrganizationInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.loadInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if _, err := RequireOrgRole(tx, invite.OrganizationID, actorID, model.OrgRoleAdmin); err != nil {
			return err
		}
		if invite.Status != model.InviteStatusPending {
			return apperr.Newf(apperr.KindConflict, "invite is %s", invite.Status)
		}

		now := s.now()
		res := tx.Model(&model.OrganizationInvite{}).
			Where("id = ? AND status = ?", invite.ID, model.InviteStatusPending).
			Updates(map[string]interface{}{
				"status":     model.InviteStatusRevoked,
				"revoked_at": now,
			})
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to revoke invite", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.conflictWithCurrentStatus(tx, invite.ID)
		}

		invite.Status = model.InviteStatusRevoked
		invite.RevokedAt = &now
		revoked = invite
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

// List returns all invites for the organization, newest first. Token
// material is excluded from serialized output by the model.
func (s *InviteService) List(ctx context.Context, orgID, actorID string) ([]model.OrganizationInvite, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireOrgRole(db, orgID, actorID, model.OrgRoleAdmin); err != nil {
		return nil, err
	}

	var invites []model.OrganizationInvite
	err := db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&invites).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list invites", err)
	}
	return invites, nil
}

func (s *InviteService) loadInvite(tx *gorm.DB, inviteID string) (*model.OrganizationInvite, error) {
	var invite model.OrganizationInvite
	if err := tx.First(&invite, "id = ?", inviteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "invite not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load invite", err)
	}
	return &invite, nil
}

// classifyInviteInsertConflict decides which unique constraint a failed
// invite insert tripped. A visible pending invite for the email means a
// concurrent create won the race; otherwise the token hash collided and the
// caller should retry. Runs on a fresh connection because postgres aborts
// the transaction the insert failed in.
func (s *InviteService) classifyInviteInsertConflict(ctx context.Context, orgID, email string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.OrganizationInvite{}).
		Where("organization_id = ? AND email = ? AND status = ?", orgID, email, model.InviteStatusPending).
		Count(&count).Error
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to classify invite conflict", err)
	}
	if count > 0 {
		return apperr.New(apperr.KindConflict, "pending invite already exists")
	}
	return apperr.New(apperr.KindInternal, "invite token collision, retry")
}

func (s *InviteService) conflictWithCurrentStatus(tx *gorm.DB, inviteID string) error {
	var current model.OrganizationInvite
	if err := tx.First(&current, "id = ?", inviteID).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to reload invite", err)
	}
	return apperr.Newf(apperr.KindConflict, "invite is %s", current.Status)
}

func buildAcceptLink(inviteID, token string) string {
	// relative link: delivery is out of scope, callers copy it
	return fmt.Sprintf("/v1/organizations/invites/%s/accept?token=%s", inviteID, token)
}
