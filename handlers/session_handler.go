package handlers

import (
	"net/http"
	"strconv"

	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/guard"
	"github.com/edulytics/portal/services/profiles"
	"github.com/edulytics/portal/services/session"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// LoginRequest is the body of the end-user login endpoints
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=255"`
}

// SessionView is the public form of an end-user session
type SessionView struct {
	Email  string               `json:"email"`
	Mode   models.Mode          `json:"mode"`
	Role   models.UserRole      `json:"role"`
	Source models.SessionSource `json:"source"`
	Name   string               `json:"name,omitempty"`
}

// SessionResponse describes the end-user session state
type SessionResponse struct {
	Status        session.Status `json:"status"`
	Authenticated bool           `json:"authenticated"`
	Session       *SessionView   `json:"session,omitempty"`
	Redirect      string         `json:"redirect,omitempty"`
}

// SessionHandler serves the end-user session endpoints
type SessionHandler struct {
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewSessionHandler creates a SessionHandler
func NewSessionHandler(auditService *audit.AuditService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{audit: auditService, logger: logger}
}

// LandingPath is where an end user goes after logging in
func LandingPath(mode models.Mode) string {
	return models.MatchMode(mode,
		func() string { return "/dashboard" },
		func() string { return "/personal/dashboard" },
	)
}

func sessionResponse(m *session.Manager) SessionResponse {
	resp := SessionResponse{Status: m.Status()}
	if s, ok := m.Session(); ok {
		resp.Authenticated = true
		resp.Session = &SessionView{
			Email:  s.Email(),
			Mode:   s.Mode(),
			Role:   s.Role(),
			Source: s.Source(),
			Name:   s.Name(),
		}
	}
	return resp
}

// providerOrFail returns the request's provider or writes a 500
func providerOrFail(w http.ResponseWriter, r *http.Request, logger *zap.Logger) *profiles.Provider {
	p := middleware.GetProviderFromContext(r.Context())
	if p == nil {
		logger.Error("no profile provider on request",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
	}
	return p
}

// HandleGet handles GET /api/session
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}
	_ = utils.WriteOK(w, sessionResponse(p.User))
}

// HandleLogin handles POST /api/session/login against the demo allow-list
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	var req LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	ok, err := p.User.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if !ok {
		h.auditFailed(r, p.ID, req.Email, models.SessionSourceDemo)
		HandleServiceError(w, services.ErrInvalidCredentials, h.logger)
		return
	}

	h.loggedIn(w, r, p)
}

// SignupRequest is a personal account registration
type SignupRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	MobileNumber    string `json:"mobile_number" validate:"omitempty,max=32"`
	Password        string `json:"password" validate:"required,min=6,max=255"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=Password"`
}

// SignupResponse points the client at the personal login
type SignupResponse struct {
	Status   string              `json:"status"`
	User     *models.UserProfile `json:"user"`
	Redirect string              `json:"redirect"`
}

// HandlePersonalSignup handles POST /api/session/personal/signup. The account
// is created on the backend; no session is started.
func (h *SessionHandler) HandlePersonalSignup(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	var req SignupRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := p.User.Register(r.Context(), session.Signup{
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, SignupResponse{
		Status:   "created",
		User:     user,
		Redirect: guard.PersonalLoginPath,
	})
}

// HandlePersonalLogin handles POST /api/session/personal/login against the backend
func (h *SessionHandler) HandlePersonalLogin(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	var req LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if _, err := p.User.LoginWithBackend(r.Context(), req.Email, req.Password); err != nil {
		if services.IsUnauthorizedError(err) {
			h.auditFailed(r, p.ID, req.Email, models.SessionSourceBackend)
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	h.loggedIn(w, r, p)
}

func (h *SessionHandler) loggedIn(w http.ResponseWriter, r *http.Request, p *profiles.Provider) {
	resp := sessionResponse(p.User)
	if resp.Session != nil {
		resp.Redirect = LandingPath(resp.Session.Mode)
		if s, ok := p.User.Session(); ok {
			if err := h.audit.LogUserLogin(p.ID, s, middleware.RequestMeta(r)); err != nil {
				h.logger.Debug("login not audited", zap.Error(err))
			}
		}
	}
	_ = utils.WriteOK(w, resp)
}

func (h *SessionHandler) auditFailed(r *http.Request, profileID, email string, source models.SessionSource) {
	if err := h.audit.LogUserLoginFailed(profileID, email, source, middleware.RequestMeta(r)); err != nil {
		h.logger.Debug("failed login not audited", zap.Error(err))
	}
}

// HandleLogout handles POST /api/session/logout
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}

	email := ""
	if s, ok := p.User.Session(); ok {
		email = s.Email()
	}
	if err := p.User.Logout(r.Context()); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if email != "" {
		if err := h.audit.LogUserLogout(p.ID, email, middleware.RequestMeta(r)); err != nil {
			h.logger.Debug("logout not audited", zap.Error(err))
		}
	}

	resp := sessionResponse(p.User)
	resp.Redirect = "/"
	_ = utils.WriteOK(w, resp)
}

// HandleActivity handles GET /api/session/activity: the profile's recent auth
// events, newest first.
func (h *SessionHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileIDFromContext(r.Context())

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			_ = utils.WriteBadRequest(w, "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}

	logs, err := h.audit.Recent(r.Context(), profileID, limit)
	if err != nil {
		HandleServiceError(w, services.WrapStorage(err), h.logger)
		return
	}
	_ = utils.WriteOK(w, logs)
}
