package repository

import (
	"context"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository reads and writes system_settings rows
type SettingRepository interface {
	// Get returns gorm.ErrRecordNotFound when the key has no row.
	Get(ctx context.Context, key string) (*model.SystemSetting, error)
	Upsert(ctx context.Context, key, value, description string) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	var setting model.SystemSetting
	if err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, key, value, description string) error {
	setting := model.SystemSetting{
		SettingKey:   key,
		SettingValue: value,
		Description:  description,
		UpdatedAt:    time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "description", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		logger.Error("Failed to upsert system setting", err, map[string]interface{}{
			"key": key,
		})
		return err
	}

	logger.Debug("System setting saved", map[string]interface{}{
		"key":   key,
		"value": value,
	})
	return nil
}
