package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/metrics"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrMaintenanceUnavailable wraps failures to read or write the maintenance setting
var ErrMaintenanceUnavailable = errors.New("maintenance setting unavailable")

// MaintenanceStatus is the current value of the platform-wide switch
type MaintenanceStatus struct {
	Enabled   bool       `json:"maintenanceMode"`
	Message   string     `json:"message,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Actor identifies who changed a setting; UserID is zero for the operations CLI
type Actor struct {
	UserID uint
	IP     string
}

// EventMaintenanceStatus is the type of every maintenance websocket event
const EventMaintenanceStatus = "maintenance_status"

// MaintenanceEvent is pushed to websocket subscribers on every change
type MaintenanceEvent struct {
	Type string `json:"type"`
	MaintenanceStatus
}

// StatusBroadcaster pushes maintenance changes to live subscribers
type StatusBroadcaster interface {
	Broadcast(payload interface{}) error
}

type MaintenanceService interface {
	// GetStatus reads the switch. A missing row means maintenance is off.
	GetStatus(ctx context.Context) (*MaintenanceStatus, error)
	// Toggle flips the switch and records one audit entry.
	Toggle(ctx context.Context, actor Actor) (*MaintenanceStatus, error)
	SetEnabled(ctx context.Context, actor Actor, enabled bool) (*MaintenanceStatus, error)
	SetMessage(ctx context.Context, actor Actor, message string) (*MaintenanceStatus, error)
}

type maintenanceService struct {
	settings    repository.SettingRepository
	auditLog    repository.AdminLogRepository
	broadcaster StatusBroadcaster
}

// NewMaintenanceService wires the setting store and audit log; broadcaster may be nil.
func NewMaintenanceService(
	settings repository.SettingRepository,
	auditLog repository.AdminLogRepository,
	broadcaster StatusBroadcaster,
) MaintenanceService {
	return &maintenanceService{
		settings:    settings,
		auditLog:    auditLog,
		broadcaster: broadcaster,
	}
}

func (s *maintenanceService) GetStatus(ctx context.Context) (*MaintenanceStatus, error) {
	status := &MaintenanceStatus{}

	mode, err := s.settings.Get(ctx, model.SettingMaintenanceMode)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no mode row means off; the message is still read
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrMaintenanceUnavailable, err)
	default:
		status.Enabled = parseBool(mode.SettingValue)
		updatedAt := mode.UpdatedAt
		status.UpdatedAt = &updatedAt
	}

	message, err := s.settings.Get(ctx, model.SettingMaintenanceMessage)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		// the message is decoration; the flag alone decides gating
		logger.Warn("Failed to read maintenance message", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		status.Message = message.SettingValue
	}

	return status, nil
}

func (s *maintenanceService) Toggle(ctx context.Context, actor Actor) (*MaintenanceStatus, error) {
	current, err := s.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, model.ActionToggleMaintenance, !current.Enabled)
}

func (s *maintenanceService) SetEnabled(ctx context.Context, actor Actor, enabled bool) (*MaintenanceStatus, error) {
	return s.apply(ctx, actor, model.ActionSetMaintenance, enabled)
}

func (s *maintenanceService) apply(ctx context.Context, actor Actor, action string, enabled bool) (*MaintenanceStatus, error) {
	value := strconv.FormatBool(enabled)
	if err := s.settings.Upsert(ctx, model.SettingMaintenanceMode, value, "Platform-wide maintenance mode"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaintenanceUnavailable, err)
	}

	logger.Info("Maintenance mode changed", map[string]interface{}{
		"admin_id": actor.UserID,
		"enabled":  enabled,
		"action":   action,
	})
	metrics.MaintenanceChanges.WithLabelValues(action).Inc()

	s.audit(ctx, actor, action, fmt.Sprintf("Maintenance mode set to %s", value), value)

	status, err := s.GetStatus(ctx)
	if err != nil {
		// the write succeeded; report what was written
		status = &MaintenanceStatus{Enabled: enabled}
	}
	s.publish(status)
	return status, nil
}

func (s *maintenanceService) SetMessage(ctx context.Context, actor Actor, message string) (*MaintenanceStatus, error) {
	if err := s.settings.Upsert(ctx, model.SettingMaintenanceMessage, message, "Message shown while under maintenance"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaintenanceUnavailable, err)
	}
	metrics.MaintenanceChanges.WithLabelValues(model.ActionSetMaintenanceMessage).Inc()

	s.audit(ctx, actor, model.ActionSetMaintenanceMessage, "Maintenance message updated", message)

	status, err := s.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(status)
	return status, nil
}

// audit records the change; failures are logged and never undo the change
func (s *maintenanceService) audit(ctx context.Context, actor Actor, action, details, newValue string) {
	if s.auditLog == nil {
		return
	}

	entry := &model.AdminLog{
		AdminID:   actor.UserID,
		Action:    action,
		Details:   details,
		NewValue:  newValue,
		IPAddress: actor.IP,
	}
	if err := s.auditLog.Create(ctx, entry); err != nil {
		logger.Error("Failed to write maintenance audit log", err, map[string]interface{}{
			"admin_id": actor.UserID,
			"action":   action,
		})
	}
}

func (s *maintenanceService) publish(status *MaintenanceStatus) {
	if s.broadcaster == nil {
		return
	}
	event := MaintenanceEvent{Type: EventMaintenanceStatus, MaintenanceStatus: *status}
	if err := s.broadcaster.Broadcast(event); err != nil {
		logger.Warn("Failed to broadcast maintenance status", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func parseBool(value string) bool {
	enabled, err := strconv.ParseBool(value)
	return err == nil && enabled
}
