package handler

import (
	"net/http"
	"time"

	"github.com/alertarea/alertarea/internal/api/models"
	"github.com/alertarea/alertarea/internal/api/response"
	"github.com/alertarea/alertarea/internal/catalogue"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version      string
	buildTime    string
	store        *catalogue.Store
	index        *catalogue.Index
	gatewayState func() string
}

// NewOpsHandler creates a new OpsHandler. gatewayState reports the
// circuit state of the alert gateway client and may be nil.
func NewOpsHandler(version, buildTime string, store *catalogue.Store, index *catalogue.Index, gatewayState func() string) *OpsHandler {
	return &OpsHandler{
		version:      version,
		buildTime:    buildTime,
		store:        store,
		index:        index,
		gatewayState: gatewayState,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Fails
// when the area catalogue cannot be read.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	status := http.StatusOK
	if _, err := h.store.GetLibraries(); err != nil {
		health.Status = models.HealthStatusFail
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	catalogueStatus := models.HealthStatusOK
	if _, err := h.store.GetLibraries(); err != nil {
		catalogueStatus = models.HealthStatusFail
	}

	indexStatus := models.HealthStatusOK
	if h.index.Size() == 0 {
		indexStatus = models.HealthStatusDegraded
	}

	subsystems := []models.SubsystemStatus{
		{Name: "area-catalogue", Status: catalogueStatus},
		{Name: "ward-index", Status: indexStatus},
	}
	if h.gatewayState != nil {
		state := h.gatewayState()
		gatewayStatus := models.HealthStatusOK
		if state != "closed" {
			gatewayStatus = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, models.SubsystemStatus{
			Name:   "alert-gateway",
			Status: gatewayStatus,
			Detail: &state,
		})
	}

	overall := models.HealthStatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			overall = models.HealthStatusFail
			break
		}
		if s.Status == models.HealthStatusDegraded {
			overall = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     overall,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
	})
}
