package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/app/service"
	apperrors "github.com/neutec/secondhand-backend/internal/errors"
	"github.com/neutec/secondhand-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminController struct {
	maintenanceService service.MaintenanceService
	adminService       service.AdminService
}

func NewAdminController(maintenanceService service.MaintenanceService, adminService service.AdminService) *AdminController {
	return &AdminController{
		maintenanceService: maintenanceService,
		adminService:       adminService,
	}
}

type MaintenanceMessageRequest struct {
	Message string `json:"message" binding:"max=500"`
}

func actorFromContext(c *gin.Context) service.Actor {
	userID, _ := middleware.GetUserID(c)
	return service.Actor{UserID: userID, IP: c.ClientIP()}
}

// GetMaintenance returns the full maintenance setting
// GET /api/v1/admin/maintenance
func (ctrl *AdminController) GetMaintenance(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	status, err := ctrl.maintenanceService.GetStatus(c.Request.Context())
	if err != nil {
		log.Error("Failed to read maintenance status", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.MaintenanceStatusError,
			"Failed to read maintenance status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// ToggleMaintenance flips maintenance mode
// POST /api/v1/admin/maintenance/toggle
func (ctrl *AdminController) ToggleMaintenance(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor := actorFromContext(c)

	status, err := ctrl.maintenanceService.Toggle(c.Request.Context(), actor)
	if err != nil {
		log.Error("Failed to toggle maintenance mode", err, map[string]interface{}{
			"admin_id": actor.UserID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.MaintenanceToggleError,
			"Failed to toggle maintenance mode")
		return
	}

	state := "disabled"
	if status.Enabled {
		state = "enabled"
	}
	log.Info("Maintenance mode toggled", map[string]interface{}{
		"admin_id": actor.UserID,
		"enabled":  status.Enabled,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":         "Maintenance mode " + state,
		"maintenanceMode": status.Enabled,
	})
}

// SetMaintenanceMessage updates the text shown to gated clients
// PUT /api/v1/admin/maintenance/message
func (ctrl *AdminController) SetMaintenanceMessage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req MaintenanceMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid maintenance message request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, msgInvalidInput)
		return
	}

	status, err := ctrl.maintenanceService.SetMessage(c.Request.Context(), actorFromContext(c), req.Message)
	if err != nil {
		log.Error("Failed to update maintenance message", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.MaintenanceToggleError,
			"Failed to update maintenance message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Maintenance message updated",
		"maintenanceMode": status.Enabled,
	})
}

func auditFilterFromQuery(c *gin.Context) repository.AdminLogFilter {
	filter := repository.AdminLogFilter{Action: c.Query("action")}
	if id, err := strconv.ParseUint(c.Query("admin_id"), 10, 64); err == nil {
		filter.AdminID = uint(id)
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}

// ListAuditLogs returns audit entries, newest first
// GET /api/v1/admin/audit-logs?action=&admin_id=&page=&page_size=
func (ctrl *AdminController) ListAuditLogs(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	filter := auditFilterFromQuery(c)

	logs, total, err := ctrl.adminService.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		log.Error("Failed to list audit logs", err)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list audit logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"page":  filter.Page,
	})
}

// ExportAuditLogs downloads matching audit entries as a spreadsheet
// GET /api/v1/admin/audit-logs/export?action=&admin_id=
func (ctrl *AdminController) ExportAuditLogs(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var buf bytes.Buffer
	rows, err := ctrl.adminService.ExportAuditLogs(c.Request.Context(), auditFilterFromQuery(c), &buf)
	if err != nil {
		log.Error("Failed to export audit logs", err)
		apperrors.InternalError(c, "Failed to export audit logs")
		return
	}

	filename := fmt.Sprintf("audit-logs-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	log.Info("Audit logs exported", map[string]interface{}{
		"rows": rows,
	})

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetResetTokenStats reports outstanding password reset tokens
// GET /api/v1/admin/reset-tokens/stats
func (ctrl *AdminController) GetResetTokenStats(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stats, err := ctrl.adminService.ResetTokenStats(c.Request.Context())
	if err != nil {
		log.Error("Failed to read reset token stats", err)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, stats)
}
