package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/neutec/secondhand-backend/internal/app/service"
	"github.com/neutec/secondhand-backend/internal/middleware"
	ws "github.com/neutec/secondhand-backend/internal/websocket"
)

type MaintenanceController struct {
	maintenanceService service.MaintenanceService
	hub                *ws.Hub
	upgrader           *websocket.Upgrader
}

// NewMaintenanceController serves the public status endpoints. Websocket
// origins are checked against allowedOrigins ("*" allows any).
func NewMaintenanceController(maintenanceService service.MaintenanceService, hub *ws.Hub, allowedOrigins []string) *MaintenanceController {
	return &MaintenanceController{
		maintenanceService: maintenanceService,
		hub:                hub,
		upgrader:           ws.NewUpgrader(originChecker(allowedOrigins)),
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return nil
		}
		allowed[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// GetStatus reports whether maintenance mode is on
// GET /api/v1/maintenance/status
func (ctrl *MaintenanceController) GetStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	status, err := ctrl.maintenanceService.GetStatus(c.Request.Context())
	if err != nil {
		log.Error("Failed to read maintenance status", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":         false,
			"maintenanceMode": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"maintenanceMode": status.Enabled,
		"message":         status.Message,
	})
}

// Subscribe streams maintenance status changes over a websocket.
// The current status is sent as the first event.
// GET /api/v1/maintenance/ws
func (ctrl *MaintenanceController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var initial interface{}
	if status, err := ctrl.maintenanceService.GetStatus(c.Request.Context()); err == nil {
		initial = service.MaintenanceEvent{Type: service.EventMaintenanceStatus, MaintenanceStatus: *status}
	} else {
		log.Warn("Subscribing without initial maintenance status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := ws.Serve(ctrl.hub, ctrl.upgrader, c.Writer, c.Request, c.ClientIP(), initial); err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	log.Info("Maintenance subscriber connected", map[string]interface{}{
		"subscribers": ctrl.hub.ClientCount(),
	})
}
