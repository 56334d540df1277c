// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-workflow-backend/internal/model"
)

// NewSQLite opens a private in-memory SQLite database with the full schema.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// NewMockDB returns a postgres-dialect gorm DB backed by sqlmock.
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// SeedProfile creates a profile with the given role and returns its id.
func SeedProfile(t *testing.T, db *gorm.DB, name string, role model.Role) string {
	t.Helper()

	p := model.Profile{
		Email:       fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		DisplayName: name,
		Role:        role,
	}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

// SeedStaff assigns userID to propertyID with role.
func SeedStaff(t *testing.T, db *gorm.DB, propertyID, userID string, role model.Role, active bool) {
	t.Helper()

	require.NoError(t, db.Create(&model.PropertyStaff{
		PropertyID: propertyID,
		UserID:     userID,
		Role:       role,
		Active:     active,
	}).Error)
}
