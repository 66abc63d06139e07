package handlers

import (
	"context"
	"net/http"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// AdminConsole is the slice of the backend client behind the console routes
type AdminConsole interface {
	AddUser(ctx context.Context, token string, req backend.AddUserRequest) (*backend.AddUserResponse, error)
	AssignStudents(ctx context.Context, token string, req backend.AssignStudentsRequest) (*backend.MessageResponse, error)
	ListUsers(ctx context.Context, token, institutionID string) ([]models.UserProfile, error)
	ListTeachers(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error)
	ListStudents(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error)
	ListInstitutions(ctx context.Context, token string) ([]models.Institution, error)
	CreateInstitution(ctx context.Context, token string, req backend.CreateInstitutionRequest) (*models.Institution, error)
}

var (
	errScopeRequired      = services.NewDomainError(services.ErrorTypeValidation, "institution_id or all=true is required", nil)
	errNoInstitution      = services.NewDomainError(services.ErrorTypeForbidden, "admin is not linked to an institution", nil)
	errForeignInstitution = services.NewDomainError(services.ErrorTypeForbidden, "institution is outside this admin's scope", nil)
)

// AdminConsoleHandler proxies the admin CRUD calls with the stored admin token
type AdminConsoleHandler struct {
	console AdminConsole
	logger  *zap.Logger
}

// NewAdminConsoleHandler creates an AdminConsoleHandler
func NewAdminConsoleHandler(console AdminConsole, logger *zap.Logger) *AdminConsoleHandler {
	return &AdminConsoleHandler{console: console, logger: logger}
}

// adminCall is the resolved caller of a console request
type adminCall struct {
	user  models.AdminUser
	token string
}

func (h *AdminConsoleHandler) caller(w http.ResponseWriter, r *http.Request) (adminCall, bool) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return adminCall{}, false
	}
	s, ok := p.Admin.Session()
	if !ok {
		HandleServiceError(w, services.ErrNoAdminSession, h.logger)
		return adminCall{}, false
	}
	return adminCall{user: s.User, token: s.Token}, true
}

// scope resolves the institution filter of a list call. An empty result with
// a nil error means every institution.
func scope(c adminCall, r *http.Request) (string, error) {
	requested := r.URL.Query().Get("institution_id")
	if requested != "" {
		if err := utils.ValidateUUID(requested); err != nil {
			return "", services.NewDomainError(services.ErrorTypeValidation, "institution_id must be a valid UUID", err)
		}
	}

	return models.MatchAdminRole(c.user.Role,
		func() scopeResult {
			if c.user.InstitutionID == nil || *c.user.InstitutionID == "" {
				return scopeResult{err: errNoInstitution}
			}
			own := *c.user.InstitutionID
			if requested != "" && requested != own {
				return scopeResult{err: errForeignInstitution}
			}
			return scopeResult{id: own}
		},
		func() scopeResult {
			if requested != "" {
				return scopeResult{id: requested}
			}
			if r.URL.Query().Get("all") == "true" {
				return scopeResult{}
			}
			return scopeResult{err: errScopeRequired}
		},
	).unwrap()
}

type scopeResult struct {
	id  string
	err error
}

func (s scopeResult) unwrap() (string, error) { return s.id, s.err }

// HandleListUsers handles GET /api/admin-console/users
func (h *AdminConsoleHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	institutionID, err := scope(c, r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	users, err := h.console.ListUsers(r.Context(), c.token, institutionID)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteOK(w, users)
}

// HandleListTeachers handles GET /api/admin-console/teachers
func (h *AdminConsoleHandler) HandleListTeachers(w http.ResponseWriter, r *http.Request) {
	h.listDirectory(w, r, h.console.ListTeachers)
}

// HandleListStudents handles GET /api/admin-console/students
func (h *AdminConsoleHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	h.listDirectory(w, r, h.console.ListStudents)
}

func (h *AdminConsoleHandler) listDirectory(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error)) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	institutionID, err := scope(c, r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	users, err := list(r.Context(), c.token, institutionID)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteOK(w, users)
}

// HandleAddUser handles POST /api/admin-console/users. An institution admin
// may omit institution_id; it defaults to the admin's own institution.
func (h *AdminConsoleHandler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req backend.AddUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if c.user.Role == models.AdminRoleInstitution {
		if c.user.InstitutionID == nil || *c.user.InstitutionID == "" {
			HandleServiceError(w, errNoInstitution, h.logger)
			return
		}
		if req.InstitutionID == "" {
			req.InstitutionID = *c.user.InstitutionID
		} else if req.InstitutionID != *c.user.InstitutionID {
			HandleServiceError(w, errForeignInstitution, h.logger)
			return
		}
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	resp, err := h.console.AddUser(r.Context(), c.token, req)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteCreated(w, resp)
}

// HandleAssignStudents handles POST /api/admin-console/assign-students
func (h *AdminConsoleHandler) HandleAssignStudents(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req backend.AssignStudentsRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	resp, err := h.console.AssignStudents(r.Context(), c.token, req)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteOK(w, resp)
}

// HandleListInstitutions handles GET /api/admin-console/institutions
func (h *AdminConsoleHandler) HandleListInstitutions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	institutions, err := h.console.ListInstitutions(r.Context(), c.token)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteOK(w, institutions)
}

// HandleCreateInstitution handles POST /api/admin-console/institutions
func (h *AdminConsoleHandler) HandleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req backend.CreateInstitutionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	institution, err := h.console.CreateInstitution(r.Context(), c.token, req)
	if err != nil {
		HandleServiceError(w, services.MapBackendError(err), h.logger)
		return
	}
	_ = utils.WriteCreated(w, institution)
}
