package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/pkg/hashutil"
	"github.com/laribacloud/lariba-cloud/pkg/jwtutil"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// AuthService registers users, verifies credentials and issues session
// tokens.
type AuthService struct {
	db  *gorm.DB
	jwt *jwtutil.JWTUtil
	now func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(db *gorm.DB, jwt *jwtutil.JWTUtil) *AuthService {
	return &AuthService{db: db, jwt: jwt, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a user with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, apperr.New(apperr.KindInvalid, "name and email are required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Newf(apperr.KindInvalid, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := hashutil.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.KindConflict, "email already registered")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create user", err)
	}
	return &user, nil
}

// Login verifies credentials and returns a signed bearer token. The failure
// message never distinguishes a missing account from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = normalizeEmail(email)

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return "", nil, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	if !hashutil.VerifyPassword(password, user.PasswordHash) {
		return "", nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, "failed to generate token", err)
	}
	return token, &user, nil
}

// CurrentUser resolves a token subject to a user row.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindUnauthorized, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
