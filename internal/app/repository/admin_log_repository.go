package repository

import (
	"context"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"gorm.io/gorm"
)

// AdminLogFilter narrows an audit log listing
type AdminLogFilter struct {
	Action   string
	AdminID  uint
	Page     int
	PageSize int
}

type AdminLogRepository interface {
	Create(ctx context.Context, entry *model.AdminLog) error
	// List returns entries newest first together with the unpaginated total.
	List(ctx context.Context, filter AdminLogFilter) ([]model.AdminLog, int64, error)
	Count(ctx context.Context, action string) (int64, error)
}

type adminLogRepository struct {
	db *gorm.DB
}

func NewAdminLogRepository(db *gorm.DB) AdminLogRepository {
	return &adminLogRepository{db: db}
}

func (r *adminLogRepository) Create(ctx context.Context, entry *model.AdminLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Error("Failed to write admin log", err, map[string]interface{}{
			"admin_id": entry.AdminID,
			"action":   entry.Action,
		})
		return err
	}
	return nil
}

func (r *adminLogRepository) List(ctx context.Context, filter AdminLogFilter) ([]model.AdminLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AdminLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.AdminID != 0 {
		query = query.Where("admin_id = ?", filter.AdminID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count admin logs", err)
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var logs []model.AdminLog
	if err := query.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		logger.Error("Failed to list admin logs", err)
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *adminLogRepository) Count(ctx context.Context, action string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.AdminLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
