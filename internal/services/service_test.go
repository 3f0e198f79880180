package services

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tesseract-hub/agency-service/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Client{},
		&models.Contact{},
		&models.Project{},
		&models.Assignment{},
		&models.Invoice{},
	))
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustClient(t *testing.T, db *gorm.DB, name string) *models.Client {
	t.Helper()
	client := &models.Client{CompanyName: name}
	require.NoError(t, db.Create(client).Error)
	return client
}

func mustProject(t *testing.T, db *gorm.DB, name string) *models.Project {
	t.Helper()
	project := &models.Project{
		Name:       name,
		Status:     models.ProjectStatusOnboarding,
		Priority:   models.ProjectPriorityMedium,
		ClientName: models.NoClient,
		PortalSlug: makeSlug(name),
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func reloadProject(t *testing.T, db *gorm.DB, id interface{}) *models.Project {
	t.Helper()
	var project models.Project
	require.NoError(t, db.First(&project, "id = ?", id).Error)
	return &project
}
