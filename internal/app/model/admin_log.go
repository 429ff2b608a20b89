package model

import "time"

// Audit actions
const (
	ActionToggleMaintenance     = "toggle_maintenance"
	ActionSetMaintenance        = "set_maintenance"
	ActionSetMaintenanceMessage = "set_maintenance_message"
)

// AdminLog is an append-only audit record of an administrative action.
// AdminID is zero for actions taken from the operations CLI.
type AdminLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"index" json:"admin_id"`
	Action    string    `gorm:"size:100;not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	NewValue  string    `gorm:"size:255" json:"new_value"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}
