package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandler_ExposesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ResetRequests.WithLabelValues("issued").Inc()
	MaintenanceBlocked.Inc()

	router := gin.New()
	router.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "secondhand_password_reset_requests_total")
	assert.Contains(t, w.Body.String(), "secondhand_maintenance_blocked_requests_total")
}

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(ResetCompletions.WithLabelValues("success"))
	ResetCompletions.WithLabelValues("success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ResetCompletions.WithLabelValues("success")))
}
