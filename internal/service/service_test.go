package service

import (
	"context"
	"testing"
	"time"

	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/pkg/hashutil"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// shared fixtures for the service tests: an isolated in-memory database per
// test and a deterministic pepper.

var testHasher = hashutil.NewKeyedHasher("test-pepper")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.OrganizationMember{},
		&model.Project{},
		&model.ProjectMember{},
		&model.ApiKey{},
		&model.OrganizationInvite{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) *model.User {
	t.Helper()

	user := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "irrelevant-for-this-test",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createOrg(t *testing.T, db *gorm.DB, owner *model.User, name, slug string) *model.Organization {
	t.Helper()

	orgs := NewOrganizationService(db)
	org, err := orgs.Create(context.Background(), owner.ID, name, slug)
	require.NoError(t, err)
	return org
}

func createProject(t *testing.T, db *gorm.DB, org *model.Organization, actor *model.User, name, slug string) *model.Project {
	t.Helper()

	projects := NewProjectService(db)
	project, err := projects.Create(context.Background(), org.ID, actor.ID, name, slug)
	require.NoError(t, err)
	return project
}

func addOrgMember(t *testing.T, db *gorm.DB, org *model.Organization, user *model.User, role model.OrgRole) {
	t.Helper()

	member := model.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
	}
	require.NoError(t, db.Create(&member).Error)
}

func addProjectMember(t *testing.T, db *gorm.DB, project *model.Project, user *model.User, role model.ProjectRole) {
	t.Helper()

	member := model.ProjectMember{
		ProjectID: project.ID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&member).Error)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
