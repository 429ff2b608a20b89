package model

import "time"

// Well-known setting keys
const (
	SettingMaintenanceMode    = "maintenance_mode"    // "true" / "false"
	SettingMaintenanceMessage = "maintenance_message" // free text shown to users
)

// SystemSetting is a string-valued key/value row shared by all instances
type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:100;not null;uniqueIndex" json:"setting_key"`
	SettingValue string    `gorm:"type:text" json:"setting_value"`
	Description  string    `gorm:"size:255" json:"description"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
