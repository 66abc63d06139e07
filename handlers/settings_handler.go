package handlers

import (
	"net/http"

	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services/preferences"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// SettingsHandler serves the preference endpoints
type SettingsHandler struct {
	prefs  *preferences.Service
	logger *zap.Logger
}

// NewSettingsHandler creates a SettingsHandler
func NewSettingsHandler(prefs *preferences.Service, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{prefs: prefs, logger: logger}
}

// HandleGet handles GET /settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileIDFromContext(r.Context())
	prefs, err := h.prefs.Load(r.Context(), profileID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, prefs)
}

// HandlePut handles PUT /settings
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if err := utils.DecodeAndValidate(r, &prefs); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	profileID := middleware.GetProfileIDFromContext(r.Context())
	if err := h.prefs.Save(r.Context(), profileID, prefs); err != nil {
		if utils.IsValidationError(err) {
			HandleValidationError(w, err, h.logger)
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, prefs)
}
