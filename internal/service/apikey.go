package service

import (
	"context"
	"errors"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/pkg/hashutil"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"github.com/laribacloud/lariba-cloud/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefixLen = 8

	// ScopeDefault is assigned when no scope is requested.
	ScopeDefault = "default"
	// ScopeAdmin is forced on bootstrap keys.
	ScopeAdmin = "admin"
)

// IssuedKey pairs a stored key with its plaintext secret. The plaintext is
// returned exactly once and never recoverable afterwards.
type IssuedKey struct {
	Key       *model.ApiKey
	Plaintext string
}

// APIKeyService manages the machine credential lifecycle.
type APIKeyService struct {
	db   *gorm.DB
	keys *hashutil.KeyedHasher
	now  func() time.Time
}

// NewAPIKeyService creates an APIKeyService.
func NewAPIKeyService(db *gorm.DB, keys *hashutil.KeyedHasher) *APIKeyService {
	return &APIKeyService{db: db, keys: keys, now: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a new key for the project. Caller must be a project admin or
// an org admin/owner.
func (s *APIKeyService) Issue(ctx context.Context, projectID, actorID, name, scope string, expiresAt *time.Time) (*IssuedKey, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindInvalid, "name is required")
	}
	if scope == "" {
		scope = ScopeDefault
	}

	var issued *IssuedKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		var err error
		issued, err = s.createKey(tx, projectID, name, scope, expiresAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// IssueBootstrap creates the first admin key for a fresh project. Fails
// Conflict when the project already has keys.
func (s *APIKeyService) IssueBootstrap(ctx context.Context, projectID, actorID, name string) (*IssuedKey, error) {
	if name == "" {
		name = "bootstrap-admin"
	}

	var issued *IssuedKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.ApiKey{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to count keys", err)
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "project already has API keys")
		}

		var err error
		issued, err = s.createKey(tx, projectID, name, ScopeAdmin, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (s *APIKeyService) createKey(tx *gorm.DB, projectID, name, scope string, expiresAt *time.Time) (*IssuedKey, error) {
	raw, err := hashutil.GenerateSecret("")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate key", err)
	}

	key := model.ApiKey{
		ProjectID: projectID,
		Name:      name,
		KeyPrefix: hashutil.Prefix(raw, apiKeyPrefixLen),
		KeyHash:   s.keys.Hash(raw),
		Scope:     scope,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	}
	if err := tx.Create(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// hash collision: retryable by the caller, never masked as success
			return nil, apperr.New(apperr.KindInternal, "key generation collision, retry")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save key", err)
	}
	return &IssuedKey{Key: &key, Plaintext: raw}, nil
}

// Authenticate resolves a raw key to its row and project via a point lookup
// on the keyed hash. Never scans or compares raw keys.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*model.ApiKey, *model.Project, error) {
	if rawKey == "" {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "missing API key")
	}

	db := s.db.WithContext(ctx)
	defer prometheus.TrackDBOperation("api_key_lookup")(time.Now())

	var key model.ApiKey
	err := db.Where("key_hash = ?", s.keys.Hash(rawKey)).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid API key")
		}
		return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to look up key", err)
	}

	if key.Revoked() {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "API key revoked")
	}
	if key.Expired(s.now()) {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "API key expired")
	}

	var project model.Project
	if err := db.First(&project, "id = ?", key.ProjectID).Error; err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUnauthorized, "project not found for API key", err)
	}

	// best-effort usage touch; losing it must not fail the request
	now := s.now()
	if err := db.Model(&model.ApiKey{}).Where("id = ?", key.ID).
		UpdateColumn("last_used_at", now).Error; err != nil {
		logger.FromContext(ctx).Warn("failed to touch api key last_used_at",
			zap.String("key_id", key.ID), zap.Error(err))
	} else {
		key.LastUsedAt = &now
	}

	return &key, &project, nil
}

// RequireScope enforces an exact scope match. Scopes are flat strings, not a
// hierarchy.
func (s *APIKeyService) RequireScope(key *model.ApiKey, required string) error {
	if key.Scope != required {
		return apperr.Newf(apperr.KindForbidden, "requires scope: %s", required)
	}
	return nil
}

// Revoke marks the key revoked. Idempotent: revoking an already-revoked key
// succeeds with no state change.
func (s *APIKeyService) Revoke(ctx context.Context, projectID, keyID, actorID string) (*model.ApiKey, error) {
	var key model.ApiKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		if err := tx.Where("id = ? AND project_id = ?", keyID, projectID).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "key not found")
			}
			return apperr.Wrap(apperr.KindInternal, "failed to load key", err)
		}

		if key.Revoked() {
			return nil
		}

		now := s.now()
		res := tx.Model(&model.ApiKey{}).
			Where("id = ? AND revoked_at IS NULL", key.ID).
			Update("revoked_at", now)
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to revoke key", res.Error)
		}
		if res.RowsAffected > 0 {
			key.RevokedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// List returns the project's keys, newest first.
func (s *APIKeyService) List(ctx context.Context, projectID, actorID string) ([]model.ApiKey, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireProjectManager(db, projectID, actorID); err != nil {
		return nil, err
	}

	var keys []model.ApiKey
	err := db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&keys).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list keys", err)
	}
	return keys, nil
}

// Delete hard-deletes a key.
func (s *APIKeyService) Delete(ctx context.Context, projectID, keyID, actorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireProjectManager(tx, projectID, actorID); err != nil {
			return err
		}

		res := tx.Where("id = ? AND project_id = ?", keyID, projectID).Delete(&model.ApiKey{})
		if res.Error != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to delete key", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindNotFound, "key not found")
		}
		return nil
	})
}
