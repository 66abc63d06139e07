package handlers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/gate"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// GateRequest carries the two challenge answers
type GateRequest struct {
	Name  string `json:"name" validate:"max=128"`
	Place string `json:"place" validate:"max=128"`
}

// GateResponse is the outcome plus the navigation delay in whole seconds
type GateResponse struct {
	gate.Outcome
	DelaySeconds int `json:"delay_seconds"`
}

// GateHandler serves the developer gate. A nil gate means it is disabled.
type GateHandler struct {
	gate   *gate.Gate
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewGateHandler creates a GateHandler
func NewGateHandler(g *gate.Gate, auditService *audit.AuditService, logger *zap.Logger) *GateHandler {
	return &GateHandler{gate: g, audit: auditService, logger: logger}
}

// HandleSubmit handles POST /api/developer-gate. By default the outcome comes
// back at once with a Refresh header. With ?wait=true the handler holds the
// response for the outcome's delay and then answers 303 to the target.
func (h *GateHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		HandleServiceError(w, services.ErrGateDisabled, h.logger)
		return
	}

	var req GateRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	outcome := h.gate.Submit(req.Name, req.Place)
	passed := outcome.State == gate.StateSuccess

	profileID := middleware.GetProfileIDFromContext(r.Context())
	if err := h.audit.LogGate(profileID, passed, middleware.RequestMeta(r)); err != nil {
		h.logger.Debug("gate attempt not audited", zap.Error(err))
	}

	secs := int(math.Ceil(outcome.Delay.Seconds()))
	resp := GateResponse{Outcome: outcome, DelaySeconds: secs}

	if r.URL.Query().Get("wait") == "true" {
		target, err := gate.Await(r.Context(), outcome)
		if err != nil {
			h.logger.Debug("gate wait abandoned", zap.Error(err))
			return
		}
		_ = utils.WriteSeeOther(w, target, utils.SuccessResponse{Data: resp})
		return
	}

	w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s", secs, outcome.Target))
	if !passed {
		_ = utils.WriteJSON(w, http.StatusForbidden, utils.SuccessResponse{Data: resp})
		return
	}
	_ = utils.WriteOK(w, resp)
}
