package routes

import (
	"net/http"

	"github.com/edulytics/portal/app"
	appmw "github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/services/guard"
	"github.com/edulytics/portal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// endUserViews are the pages behind the end-user guard whose presentation
// follows the session's mode
var endUserViews = []string{"dashboard", "calendar", "tasks", "timetable", "reports", "profile"}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS middleware; the SPA sends the profile cookie cross-origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "Refresh", "Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	guards := deps.GuardMiddleware
	endUser := guard.EndUser(cfg.Auth.GuardAcceptRawToken)

	r.Group(func(r chi.Router) {
		r.Use(deps.ProfileMiddleware.Identify)

		// Session endpoints
		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", deps.SessionHandler.HandleGet)
			r.Post("/login", deps.SessionHandler.HandleLogin)
			r.Post("/personal/login", deps.SessionHandler.HandlePersonalLogin)
			r.Post("/personal/signup", deps.SessionHandler.HandlePersonalSignup)
			r.Post("/logout", deps.SessionHandler.HandleLogout)
			r.Get("/activity", deps.SessionHandler.HandleActivity)
		})

		r.Route("/api/admin-session", func(r chi.Router) {
			r.Get("/", deps.AdminSessionHandler.HandleGet)
			r.Post("/login", deps.AdminSessionHandler.HandleLogin)
			r.Post("/logout", deps.AdminSessionHandler.HandleLogout)
		})

		r.Post("/api/developer-gate", deps.GateHandler.HandleSubmit)

		// Admin console proxy
		r.Route("/api/admin-console", func(r chi.Router) {
			r.Use(guards.Require(guard.Role(models.AdminRoleInstitution, models.AdminRoleDeveloper)))
			r.Get("/users", deps.AdminConsoleHandler.HandleListUsers)
			r.Post("/users", deps.AdminConsoleHandler.HandleAddUser)
			r.Get("/teachers", deps.AdminConsoleHandler.HandleListTeachers)
			r.Get("/students", deps.AdminConsoleHandler.HandleListStudents)
			r.Post("/assign-students", deps.AdminConsoleHandler.HandleAssignStudents)
			r.Get("/institutions", deps.AdminConsoleHandler.HandleListInstitutions)
			r.With(guards.Require(guard.DeveloperAdmin())).
				Post("/institutions", deps.AdminConsoleHandler.HandleCreateInstitution)
		})

		// End-user views
		r.Group(func(r chi.Router) {
			r.Use(guards.Require(endUser))
			for _, name := range endUserViews {
				r.Get("/"+name, deps.ViewHandler.View(name))
			}
			r.Get("/personal/dashboard", deps.ViewHandler.ModeView("dashboard", models.ModePersonal))
			r.Get("/settings", deps.SettingsHandler.HandleGet)
			r.Put("/settings", deps.SettingsHandler.HandlePut)
		})

		r.With(guards.Require(endUser)).
			Get("/institution/dashboard", deps.ViewHandler.ModeView("dashboard", models.ModeInstitution))

		// Admin views
		r.With(guards.Require(guard.InstitutionAdmin())).
			Get("/admin/institution/dashboard", deps.ViewHandler.HandleAdminDashboard)
		r.With(guards.Require(guard.DeveloperAdmin())).
			Get("/admin/developer/dashboard", deps.ViewHandler.HandleAdminDashboard)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
