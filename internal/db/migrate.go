package db

import (
	"errors"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/neutec/secondhand-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table owned by this service
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.PasswordReset{},
		&model.SystemSetting{},
		&model.AdminLog{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs migrations against the given handle
func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedDefaultSettings(db); err != nil {
		logger.Error("Failed to seed default settings during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// seedDefaultSettings creates the maintenance rows when missing; existing values are kept
func seedDefaultSettings(db *gorm.DB) error {
	defaults := []model.SystemSetting{
		{SettingKey: model.SettingMaintenanceMode, SettingValue: "false", Description: "Platform-wide maintenance mode"},
		{SettingKey: model.SettingMaintenanceMessage, SettingValue: "", Description: "Message shown while under maintenance"},
	}

	for _, setting := range defaults {
		var existing model.SystemSetting
		err := db.Where("setting_key = ?", setting.SettingKey).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&setting).Error; err != nil {
			return err
		}
		logger.Info("Seeded default setting", map[string]interface{}{
			"key": setting.SettingKey,
		})
	}
	return nil
}

// SeedAdmin creates an admin account when no user with the email exists
func SeedAdmin(db *gorm.DB, email, password, name string) (*model.User, error) {
	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		logger.Info("Admin already exists, skipping...", map[string]interface{}{
			"email": email,
		})
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user = model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}

	logger.Info("Admin account seeded", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return &user, nil
}
