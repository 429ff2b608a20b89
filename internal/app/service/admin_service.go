package service

import (
	"context"
	"fmt"
	"io"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const auditSheet = "Audit Log"

var auditHeader = []interface{}{"ID", "Time (UTC)", "Admin ID", "Action", "New Value", "Details", "IP Address"}

// AdminService backs the admin console: audit history and reset token counts
type AdminService interface {
	ListAuditLogs(ctx context.Context, filter repository.AdminLogFilter) ([]model.AdminLog, int64, error)
	// ExportAuditLogs writes every matching entry as an xlsx workbook, ignoring paging
	ExportAuditLogs(ctx context.Context, filter repository.AdminLogFilter, w io.Writer) (int, error)
	ResetTokenStats(ctx context.Context) (*model.ResetTokenStats, error)
}

type adminService struct {
	auditLog repository.AdminLogRepository
	tokens   repository.PasswordResetRepository
}

func NewAdminService(auditLog repository.AdminLogRepository, tokens repository.PasswordResetRepository) AdminService {
	return &adminService{
		auditLog: auditLog,
		tokens:   tokens,
	}
}

func (s *adminService) ListAuditLogs(ctx context.Context, filter repository.AdminLogFilter) ([]model.AdminLog, int64, error) {
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return s.auditLog.List(ctx, filter)
}

func (s *adminService) ExportAuditLogs(ctx context.Context, filter repository.AdminLogFilter, w io.Writer) (int, error) {
	filter.Page, filter.PageSize = 0, 0
	logs, _, err := s.auditLog.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), auditSheet); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(auditSheet, "A1", &auditHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range logs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []interface{}{
			entry.ID,
			entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			entry.AdminID,
			entry.Action,
			entry.NewValue,
			entry.Details,
			entry.IPAddress,
		}
		if err := f.SetSheetRow(auditSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info("Audit log exported", map[string]interface{}{
		"rows":   len(logs),
		"action": filter.Action,
	})
	return len(logs), nil
}

func (s *adminService) ResetTokenStats(ctx context.Context) (*model.ResetTokenStats, error) {
	return s.tokens.Stats(ctx)
}
