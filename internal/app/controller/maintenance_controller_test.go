package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/app/service"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/neutec/secondhand-backend/internal/middleware"
	ws "github.com/neutec/secondhand-backend/internal/websocket"
	"github.com/neutec/secondhand-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// maintenanceHarness serves the public status routes and the admin console
type maintenanceHarness struct {
	router      *gin.Engine
	db          *gorm.DB
	hub         *ws.Hub
	maintenance service.MaintenanceService
	auditLog    repository.AdminLogRepository
	adminToken  string
	userToken   string
}

func setupMaintenanceHarness(t *testing.T) *maintenanceHarness {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)

	h := &maintenanceHarness{
		db:       testDB,
		hub:      hub,
		auditLog: repository.NewAdminLogRepository(testDB),
	}
	h.maintenance = service.NewMaintenanceService(repository.NewSettingRepository(testDB), h.auditLog, hub)
	adminService := service.NewAdminService(h.auditLog, repository.NewMemoryPasswordResetRepository(nil))

	maintenanceCtrl := NewMaintenanceController(h.maintenance, hub, []string{"*"})
	adminCtrl := NewAdminController(h.maintenance, adminService)
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	h.router = gin.New()
	h.router.GET("/maintenance/status", maintenanceCtrl.GetStatus)
	h.router.GET("/maintenance/ws", maintenanceCtrl.Subscribe)

	admin := h.router.Group("/admin", authMiddleware.Authenticate(), authMiddleware.RequireRole(model.RoleAdmin))
	admin.GET("/maintenance", adminCtrl.GetMaintenance)
	admin.POST("/maintenance/toggle", adminCtrl.ToggleMaintenance)
	admin.PUT("/maintenance/message", adminCtrl.SetMaintenanceMessage)
	admin.GET("/audit-logs", adminCtrl.ListAuditLogs)
	admin.GET("/audit-logs/export", adminCtrl.ExportAuditLogs)
	admin.GET("/reset-tokens/stats", adminCtrl.GetResetTokenStats)

	h.adminToken = signedToken(t, 1, "admin@example.com", model.RoleAdmin)
	h.userToken = signedToken(t, 2, "user@example.com", model.RoleUser)
	return h
}

func signedToken(t *testing.T, id uint, email string, role model.UserRole) string {
	t.Helper()
	tokens, err := util.GenerateTokenPair(id, email, string(role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func TestMaintenanceController_GetStatus_DefaultsOff(t *testing.T) {
	h := setupMaintenanceHarness(t)

	w := doJSON(h.router, "GET", "/maintenance/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["maintenanceMode"])
}

func TestMaintenanceController_GetStatus_NoRowIsOff(t *testing.T) {
	h := setupMaintenanceHarness(t)
	require.NoError(t, h.db.Where("1 = 1").Delete(&model.SystemSetting{}).Error)

	w := doJSON(h.router, "GET", "/maintenance/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["maintenanceMode"])
}

type failingMaintenance struct {
	service.MaintenanceService
}

func (failingMaintenance) GetStatus(context.Context) (*service.MaintenanceStatus, error) {
	return nil, errors.New("connection refused")
}

func TestMaintenanceController_GetStatus_StoreError(t *testing.T) {
	ctrl := NewMaintenanceController(failingMaintenance{}, ws.NewHub(), nil)
	router := gin.New()
	router.GET("/maintenance/status", ctrl.GetStatus)

	w := doJSON(router, "GET", "/maintenance/status", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"maintenanceMode":false}`, w.Body.String())
}

func TestMaintenanceController_Subscribe_ReceivesChanges(t *testing.T) {
	h := setupMaintenanceHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/maintenance/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var initial service.MaintenanceEvent
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, service.EventMaintenanceStatus, initial.Type)
	assert.False(t, initial.Enabled)

	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.maintenance.Toggle(context.Background(), service.Actor{UserID: 1})
	require.NoError(t, err)

	var update service.MaintenanceEvent
	require.NoError(t, conn.ReadJSON(&update))
	assert.True(t, update.Enabled)
}
