// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/database"
	"github.com/yukikurage/projecthub-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database private to the test.
// A single connection serialises transactions the way row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, zap.NewNop()))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email, name string) *models.User {
	t.Helper()
	user := &models.User{Email: email, DisplayName: name, PasswordHash: "hashedpassword", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateOrganization(t testing.TB, db *gorm.DB, slug string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: slug, Slug: slug}
	require.NoError(t, db.Create(org).Error)
	return org
}

func AddMember(t testing.TB, db *gorm.DB, orgID, userID uint64, role models.OrganizationRole) *models.OrganizationMember {
	t.Helper()
	member := &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role, JoinedAt: time.Now()}
	require.NoError(t, db.Omit("Organization", "User").Create(member).Error)
	return member
}

// CreateProject inserts a project with the default statuses and a zero counter.
func CreateProject(t testing.TB, db *gorm.DB, orgID uint64, key string, createdBy uint64) (*models.Project, []models.TaskStatus) {
	t.Helper()
	project := &models.Project{OrganizationID: orgID, Key: key, Name: key, CreatedBy: createdBy}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&models.ProjectTaskCounter{ProjectID: project.ID}).Error)
	statuses := models.DefaultStatuses(orgID, project.ID)
	require.NoError(t, db.Create(&statuses).Error)
	return project, statuses
}
