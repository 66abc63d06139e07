package handlers

import (
	"net/http"

	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/services/adminsession"
	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// AdminLoginRequest is the body of POST /api/admin-session/login
type AdminLoginRequest struct {
	Email    string             `json:"email" validate:"required,max=255"`
	Password string             `json:"password" validate:"required,max=255"`
	Portal   models.AdminPortal `json:"portal" validate:"omitempty,oneof=institution developer"`
}

// AdminSessionResponse describes the admin session state. The bearer token is
// never returned to the browser.
type AdminSessionResponse struct {
	Status        adminsession.Status `json:"status"`
	Authenticated bool                `json:"authenticated"`
	Admin         *models.AdminUser   `json:"admin,omitempty"`
	Redirect      string              `json:"redirect,omitempty"`
}

// AdminSessionHandler serves the admin session endpoints
type AdminSessionHandler struct {
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewAdminSessionHandler creates an AdminSessionHandler
func NewAdminSessionHandler(auditService *audit.AuditService, logger *zap.Logger) *AdminSessionHandler {
	return &AdminSessionHandler{audit: auditService, logger: logger}
}

func adminSessionResponse(m *adminsession.Manager) AdminSessionResponse {
	resp := AdminSessionResponse{Status: m.Status()}
	if s, ok := m.Session(); ok {
		resp.Authenticated = true
		user := s.User
		resp.Admin = &user
	}
	return resp
}

// HandleGet handles GET /api/admin-session
func (h *AdminSessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}
	_ = utils.WriteOK(w, adminSessionResponse(p.Admin))
}

// HandleLogin handles POST /api/admin-session/login
func (h *AdminSessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	var req AdminLoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	landing, err := p.Admin.Login(r.Context(), req.Email, req.Password, req.Portal)
	if err != nil {
		if services.IsUnauthorizedError(err) || services.IsForbiddenError(err) {
			if aerr := h.audit.LogAdminLoginFailed(p.ID, req.Email, req.Portal, services.GetErrorMessage(err), middleware.RequestMeta(r)); aerr != nil {
				h.logger.Debug("failed admin login not audited", zap.Error(aerr))
			}
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	resp := adminSessionResponse(p.Admin)
	resp.Redirect = landing
	if resp.Admin != nil {
		if aerr := h.audit.LogAdminLogin(p.ID, *resp.Admin, req.Portal, middleware.RequestMeta(r)); aerr != nil {
			h.logger.Debug("admin login not audited", zap.Error(aerr))
		}
	}
	_ = utils.WriteOK(w, resp)
}

// HandleLogout handles POST /api/admin-session/logout
func (h *AdminSessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	email := ""
	if s, ok := p.Admin.Session(); ok {
		email = s.User.Email
	}
	if err := p.Admin.Logout(r.Context()); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if email != "" {
		if aerr := h.audit.LogAdminLogout(p.ID, email, middleware.RequestMeta(r)); aerr != nil {
			h.logger.Debug("admin logout not audited", zap.Error(aerr))
		}
	}

	resp := adminSessionResponse(p.Admin)
	resp.Redirect = "/admin/login"
	_ = utils.WriteOK(w, resp)
}
