package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-workflow-backend/config"
	"property-workflow-backend/internal/model"
)

func TestInit_SQLiteMigratesLegacyNoticeStatus(t *testing.T) {
	cfg := &config.DatabaseConfig{
		DSN:                    fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ConnMaxLifetimeMinutes: 5,
	}

	gormDB, err := Init(cfg)
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	legacy := model.VacancyNotice{
		TenantID:    "tenant-1",
		PropertyID:  "property-1",
		MoveOutDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Reason:      "Relocating",
		Status:      model.NoticeLegacyApproved,
	}
	require.NoError(t, gormDB.Create(&legacy).Error)

	require.NoError(t, Migrate(gormDB))

	var reloaded model.VacancyNotice
	require.NoError(t, gormDB.First(&reloaded, "id = ?", legacy.ID).Error)
	assert.Equal(t, model.NoticeCompleted, reloaded.Status)
}
