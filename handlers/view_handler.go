package handlers

import (
	"net/http"

	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// NavItem is one sidebar entry
type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// ViewModel is what a guarded page needs to pick its presentation
type ViewModel struct {
	View    string          `json:"view"`
	Variant string          `json:"variant"`
	Mode    models.Mode     `json:"mode"`
	Role    models.UserRole `json:"role"`
	Email   string          `json:"email,omitempty"`
	Name    string          `json:"name,omitempty"`
	Nav     []NavItem       `json:"nav"`
}

// AdminViewModel is the admin console's landing view
type AdminViewModel struct {
	View  string           `json:"view"`
	Admin models.AdminUser `json:"admin"`
	Tabs  []string         `json:"tabs"`
}

var baseNav = []NavItem{
	{Label: "Dashboard", Path: "/dashboard"},
	{Label: "Calendar", Path: "/calendar"},
	{Label: "Tasks", Path: "/tasks"},
	{Label: "Timetable", Path: "/timetable"},
	{Label: "Reports", Path: "/reports"},
	{Label: "Settings", Path: "/settings"},
}

// NavFor builds the sidebar for a mode and role
func NavFor(mode models.Mode, role models.UserRole) []NavItem {
	nav := append([]NavItem(nil), baseNav...)
	extra := models.MatchMode(mode,
		func() []NavItem {
			return models.MatchUserRole(role,
				func() []NavItem { return nil },
				func() []NavItem { return []NavItem{{Label: "Teacher Panel", Path: "/teacher-panel"}} },
				func() []NavItem { return []NavItem{{Label: "Admin Panel", Path: "/admin-panel"}} },
			)
		},
		func() []NavItem { return nil },
	)
	return append(nav, extra...)
}

// ViewHandler renders the guarded view models. Access control is done by the
// guard middleware; views only read the session.
type ViewHandler struct {
	logger *zap.Logger
}

// NewViewHandler creates a ViewHandler
func NewViewHandler(logger *zap.Logger) *ViewHandler {
	return &ViewHandler{logger: logger}
}

// buildView resolves the presentation for a page. forced overrides the session
// mode; a request admitted without a session falls back to institution/student.
func (h *ViewHandler) buildView(r *http.Request, view string, forced models.Mode) ViewModel {
	vm := ViewModel{View: view, Mode: models.ModeInstitution, Role: models.UserRoleStudent}

	if p := middleware.GetProviderFromContext(r.Context()); p != nil {
		if s, ok := p.User.Session(); ok {
			vm.Mode = s.Mode()
			vm.Role = s.Role()
			vm.Email = s.Email()
			vm.Name = s.Name()
		}
	}
	if forced != "" {
		vm.Mode = forced
	}

	vm.Variant = models.MatchMode(vm.Mode,
		func() string {
			return models.MatchUserRole(vm.Role,
				func() string { return "institution_student" },
				func() string { return "institution_teacher" },
				func() string { return "institution_admin" },
			)
		},
		func() string { return "personal" },
	)
	vm.Nav = NavFor(vm.Mode, vm.Role)
	return vm
}

// View returns a handler for a page that follows the session's mode
func (h *ViewHandler) View(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, h.buildView(r, name, ""))
	}
}

// ModeView returns a handler for a page whose mode is fixed by its route
func (h *ViewHandler) ModeView(name string, mode models.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, h.buildView(r, name, mode))
	}
}

// HandleAdminDashboard serves both admin dashboards; the tab set follows the role
func (h *ViewHandler) HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	p := providerOrFail(w, r, h.logger)
	if p == nil {
		return
	}
	s, ok := p.Admin.Session()
	if !ok {
		HandleServiceError(w, services.ErrNoAdminSession, h.logger)
		return
	}

	vm := models.MatchAdminRole(s.User.Role,
		func() AdminViewModel {
			return AdminViewModel{View: "institution_admin_dashboard", Tabs: []string{"app-people", "manage-roles", "details"}}
		},
		func() AdminViewModel {
			return AdminViewModel{View: "developer_admin_dashboard", Tabs: []string{"overview", "app-people", "manage-roles", "details", "institution-management"}}
		},
	)
	vm.Admin = s.User
	_ = utils.WriteOK(w, vm)
}
