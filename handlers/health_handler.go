package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// HealthChecker is anything that can report its own reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Audit     *AuditStats       `json:"audit,omitempty"`
	Profiles  *int              `json:"profiles,omitempty"`
}

// AuditStats is the audit pipeline's state as reported by readiness
type AuditStats struct {
	Pending int  `json:"pending"`
	Buffer  int  `json:"buffer"`
	Workers int  `json:"workers"`
	Started bool `json:"started"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	checks   map[string]HealthChecker
	audit    *audit.AuditService
	profiles func() int
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. checks are probed by name on
// every readiness request; auditService and profiles may be nil.
func NewHealthHandler(checks map[string]HealthChecker, auditService *audit.AuditService, profiles func() int, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:   checks,
		audit:    auditService,
		profiles: profiles,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for name, checker := range h.checks {
		if err := checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			allHealthy = false
			continue
		}
		checks[name] = "healthy"
	}

	// Determine overall status
	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if h.audit != nil {
		stats := h.audit.GetStats()
		response.Audit = &AuditStats{
			Pending: stats.PendingEvents,
			Buffer:  stats.BufferSize,
			Workers: stats.WorkerCount,
			Started: stats.Started,
		}
	}
	if h.profiles != nil {
		n := h.profiles()
		response.Profiles = &n
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
