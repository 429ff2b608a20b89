package controller

import (
	"context"
	"net/http"
	"testing"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminController_ToggleMaintenance_RoundTrip(t *testing.T) {
	h := setupMaintenanceHarness(t)
	auth := []string{"Authorization", "Bearer " + h.adminToken}

	w := doJSON(h.router, "POST", "/admin/maintenance/toggle", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["maintenanceMode"])
	assert.Equal(t, "Maintenance mode enabled", body["message"])

	status := doJSON(h.router, "GET", "/maintenance/status", nil)
	assert.Equal(t, true, decodeBody(t, status)["maintenanceMode"])

	w = doJSON(h.router, "POST", "/admin/maintenance/toggle", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["maintenanceMode"])

	count, err := h.auditLog.Count(context.Background(), model.ActionToggleMaintenance)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	logs, _, err := h.auditLog.List(context.Background(), repository.AdminLogFilter{Action: model.ActionToggleMaintenance})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, uint(1), logs[0].AdminID)
	assert.Equal(t, "false", logs[0].NewValue)
}

func TestAdminController_RequiresAdmin(t *testing.T) {
	h := setupMaintenanceHarness(t)

	w := doJSON(h.router, "POST", "/admin/maintenance/toggle", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(h.router, "POST", "/admin/maintenance/toggle", nil, "Authorization", "Bearer "+h.userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	status := doJSON(h.router, "GET", "/maintenance/status", nil)
	assert.Equal(t, false, decodeBody(t, status)["maintenanceMode"])
}

func TestAdminController_SetMaintenanceMessage(t *testing.T) {
	h := setupMaintenanceHarness(t)
	auth := []string{"Authorization", "Bearer " + h.adminToken}

	w := doJSON(h.router, "PUT", "/admin/maintenance/message", MaintenanceMessageRequest{Message: "Database upgrade until 02:00"}, auth...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(h.router, "GET", "/admin/maintenance", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Database upgrade until 02:00", body["message"])
	assert.Equal(t, false, body["maintenanceMode"])
}

func TestAdminController_AuditLogs(t *testing.T) {
	h := setupMaintenanceHarness(t)
	auth := []string{"Authorization", "Bearer " + h.adminToken}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doJSON(h.router, "POST", "/admin/maintenance/toggle", nil, auth...).Code)
	}

	w := doJSON(h.router, "GET", "/admin/audit-logs?page_size=2", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Len(t, body["logs"], 2)

	export := doJSON(h.router, "GET", "/admin/audit-logs/export?action="+model.ActionToggleMaintenance, nil, auth...)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, xlsxContentType, export.Header().Get("Content-Type"))
	assert.Contains(t, export.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, export.Body.Bytes())
}

func TestAdminController_GetResetTokenStats(t *testing.T) {
	h := setupMaintenanceHarness(t)

	w := doJSON(h.router, "GET", "/admin/reset-tokens/stats", nil, "Authorization", "Bearer "+h.adminToken)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":0,"active":0,"expired":0,"used":0}`, w.Body.String())
}
