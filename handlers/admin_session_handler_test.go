package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adminLoginResponse(role models.AdminRole) *backend.AdminLoginResponse {
	inst := "6f1c2b9e-1d2a-4c3b-8e4f-5a6b7c8d9e0f"
	instName := "XYZ Academy"
	return &backend.AdminLoginResponse{
		AccessToken: "admin-token",
		TokenType:   "bearer",
		Admin: models.AdminUser{
			ID:              "a1",
			Name:            "Admin",
			Email:           "admin@academy.edu",
			Role:            role,
			InstitutionID:   &inst,
			InstitutionName: &instName,
		},
	}
}

func TestAdminSessionHandler_Login(t *testing.T) {
	tests := []struct {
		name        string
		role        models.AdminRole
		portal      string
		wantCode    int
		wantMessage string
		redirect    string
	}{
		{
			name:     "institution admin from institution portal",
			role:     models.AdminRoleInstitution,
			portal:   "institution",
			wantCode: http.StatusOK,
			redirect: "/admin/institution/dashboard",
		},
		{
			name:     "developer admin from developer portal",
			role:     models.AdminRoleDeveloper,
			portal:   "developer",
			wantCode: http.StatusOK,
			redirect: "/admin/developer/dashboard",
		},
		{
			name:     "any role without a portal",
			role:     models.AdminRoleDeveloper,
			wantCode: http.StatusOK,
			redirect: "/admin/developer/dashboard",
		},
		{
			name:        "institution admin on developer portal",
			role:        models.AdminRoleInstitution,
			portal:      "developer",
			wantCode:    http.StatusUnauthorized,
			wantMessage: "Invalid credentials for developer admin",
		},
		{
			name:        "developer admin on institution portal",
			role:        models.AdminRoleDeveloper,
			portal:      "institution",
			wantCode:    http.StatusUnauthorized,
			wantMessage: "Invalid admin type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := new(MockBackend)
			be.On("AdminLogin", mock.Anything, "admin@academy.edu", "pw").Return(adminLoginResponse(tt.role), nil)

			env := newTestEnv(t, be)
			h := NewAdminSessionHandler(env.audit, zap.NewNop())

			body := `{"email":"admin@academy.edu","password":"pw","portal":"` + tt.portal + `"}`
			w := httptest.NewRecorder()
			h.HandleLogin(w, env.request(http.MethodPost, "/api/admin-session/login", body))

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, tt.wantMessage, decodeError(t, w)["message"])
				_, ok := env.stored(t, repositories.KeyAdminToken)
				assert.False(t, ok, "rejected admin must not be persisted")
				assert.Contains(t, env.auditActions(t, 1), models.AuditActionAdminLoginFailed)
				return
			}

			var resp AdminSessionResponse
			decodeData(t, w, &resp)
			require.NotNil(t, resp.Admin)
			assert.True(t, resp.Authenticated)
			assert.Equal(t, tt.role, resp.Admin.Role)
			assert.Equal(t, tt.redirect, resp.Redirect)
			if tt.role == models.AdminRoleDeveloper {
				assert.Nil(t, resp.Admin.InstitutionID)
			}
			assert.NotContains(t, w.Body.String(), "admin-token")
			assert.Contains(t, env.auditActions(t, 1), models.AuditActionAdminLogin)
		})
	}
}

func TestAdminSessionHandler_LoginValidation(t *testing.T) {
	env := newTestEnv(t, new(MockBackend))
	h := NewAdminSessionHandler(env.audit, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleLogin(w, env.request(http.MethodPost, "/api/admin-session/login",
		`{"email":"admin@academy.edu","password":"pw","portal":"superuser"}`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeError(t, w)["details"].(map[string]interface{})
	assert.Contains(t, details, "portal")
}

func TestAdminSessionHandler_BackendRejects(t *testing.T) {
	be := new(MockBackend)
	be.On("AdminLogin", mock.Anything, "admin@academy.edu", "pw").
		Return(nil, &backend.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid email or password"})

	env := newTestEnv(t, be)
	h := NewAdminSessionHandler(env.audit, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleLogin(w, env.request(http.MethodPost, "/api/admin-session/login",
		`{"email":"admin@academy.edu","password":"pw"}`))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decodeError(t, w)["message"])
}

func TestAdminSessionHandler_GetAndLogout(t *testing.T) {
	store := memory.NewProfileStore()
	seedAdmin(t, store, adminLoginResponse(models.AdminRoleInstitution).Admin)
	env := newTestEnvWithStore(t, store, nil)
	h := NewAdminSessionHandler(env.audit, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGet(w, env.request(http.MethodGet, "/api/admin-session", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp AdminSessionResponse
	decodeData(t, w, &resp)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.Admin)
	assert.Equal(t, "admin@academy.edu", resp.Admin.Email)

	w = httptest.NewRecorder()
	h.HandleLogout(w, env.request(http.MethodPost, "/api/admin-session/logout", ""))
	require.Equal(t, http.StatusOK, w.Code)

	resp = AdminSessionResponse{}
	decodeData(t, w, &resp)
	assert.False(t, resp.Authenticated)
	assert.Equal(t, "/admin/login", resp.Redirect)

	_, ok := env.stored(t, repositories.KeyAdminUser)
	assert.False(t, ok)
	assert.Contains(t, env.auditActions(t, 1), models.AuditActionAdminLogout)
}
