package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownInstitution = "6f1c2b9e-1d2a-4c3b-8e4f-5a6b7c8d9e0f"

// MockAdminConsole implements AdminConsole
type MockAdminConsole struct {
	mock.Mock
}

func (m *MockAdminConsole) AddUser(ctx context.Context, token string, req backend.AddUserRequest) (*backend.AddUserResponse, error) {
	args := m.Called(ctx, token, req)
	if v := args.Get(0); v != nil {
		return v.(*backend.AddUserResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) AssignStudents(ctx context.Context, token string, req backend.AssignStudentsRequest) (*backend.MessageResponse, error) {
	args := m.Called(ctx, token, req)
	if v := args.Get(0); v != nil {
		return v.(*backend.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) ListUsers(ctx context.Context, token, institutionID string) ([]models.UserProfile, error) {
	args := m.Called(ctx, token, institutionID)
	if v := args.Get(0); v != nil {
		return v.([]models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) ListTeachers(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error) {
	args := m.Called(ctx, token, institutionID)
	if v := args.Get(0); v != nil {
		return v.([]models.DirectoryUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) ListStudents(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error) {
	args := m.Called(ctx, token, institutionID)
	if v := args.Get(0); v != nil {
		return v.([]models.DirectoryUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) ListInstitutions(ctx context.Context, token string) ([]models.Institution, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.([]models.Institution), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminConsole) CreateInstitution(ctx context.Context, token string, req backend.CreateInstitutionRequest) (*models.Institution, error) {
	args := m.Called(ctx, token, req)
	if v := args.Get(0); v != nil {
		return v.(*models.Institution), args.Error(1)
	}
	return nil, args.Error(1)
}

func consoleEnv(t *testing.T, role models.AdminRole) *testEnv {
	t.Helper()
	store := memory.NewProfileStore()
	seedAdmin(t, store, adminLoginResponse(role).Admin)
	return newTestEnvWithStore(t, store, nil)
}

func TestAdminConsole_InstitutionAdminScope(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{name: "defaults to own institution", query: "", wantCode: http.StatusOK},
		{name: "own institution explicitly", query: "?institution_id=" + ownInstitution, wantCode: http.StatusOK},
		{name: "all is ignored", query: "?all=true", wantCode: http.StatusOK},
		{name: "foreign institution", query: "?institution_id=11111111-2222-3333-4444-555555555555", wantCode: http.StatusForbidden},
		{name: "malformed id", query: "?institution_id=abc", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := consoleEnv(t, models.AdminRoleInstitution)
			console := new(MockAdminConsole)
			console.On("ListStudents", mock.Anything, "admin-token", ownInstitution).
				Return([]models.DirectoryUser{{ID: "s1", Email: "s1@academy.edu"}}, nil).Maybe()
			h := NewAdminConsoleHandler(console, zap.NewNop())

			w := httptest.NewRecorder()
			h.HandleListStudents(w, env.request(http.MethodGet, "/api/admin-console/students"+tt.query, ""))

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				var users []models.DirectoryUser
				decodeData(t, w, &users)
				assert.Len(t, users, 1)
				console.AssertExpectations(t)
			} else {
				console.AssertNotCalled(t, "ListStudents", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAdminConsole_DeveloperScope(t *testing.T) {
	t.Run("all=true lists every institution", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleDeveloper)
		console := new(MockAdminConsole)
		console.On("ListTeachers", mock.Anything, "admin-token", "").Return([]models.DirectoryUser{}, nil)
		h := NewAdminConsoleHandler(console, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleListTeachers(w, env.request(http.MethodGet, "/api/admin-console/teachers?all=true", ""))
		assert.Equal(t, http.StatusOK, w.Code)
		console.AssertExpectations(t)
	})

	t.Run("explicit institution", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleDeveloper)
		console := new(MockAdminConsole)
		console.On("ListUsers", mock.Anything, "admin-token", ownInstitution).Return([]models.UserProfile{}, nil)
		h := NewAdminConsoleHandler(console, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleListUsers(w, env.request(http.MethodGet, "/api/admin-console/users?institution_id="+ownInstitution, ""))
		assert.Equal(t, http.StatusOK, w.Code)
		console.AssertExpectations(t)
	})

	t.Run("scope required", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleDeveloper)
		h := NewAdminConsoleHandler(new(MockAdminConsole), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleListUsers(w, env.request(http.MethodGet, "/api/admin-console/users", ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminConsole_AddUser(t *testing.T) {
	t.Run("institution admin gets own institution filled in", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleInstitution)
		console := new(MockAdminConsole)
		want := backend.AddUserRequest{
			Email:         "new@academy.edu",
			MobileNumber:  "9999999999",
			InstitutionID: ownInstitution,
			UserID:        "STU-42",
			Role:          "student",
		}
		console.On("AddUser", mock.Anything, "admin-token", want).
			Return(&backend.AddUserResponse{Message: "User added", UserID: "u42"}, nil)
		h := NewAdminConsoleHandler(console, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleAddUser(w, env.request(http.MethodPost, "/api/admin-console/users",
			`{"email":"new@academy.edu","mobile_number":"9999999999","user_id":"STU-42","role":"student"}`))

		require.Equal(t, http.StatusCreated, w.Code)
		console.AssertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleDeveloper)
		h := NewAdminConsoleHandler(new(MockAdminConsole), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleAddUser(w, env.request(http.MethodPost, "/api/admin-console/users",
			`{"email":"new@academy.edu","mobile_number":"1","institution_id":"`+ownInstitution+`","user_id":"x","role":"principal"}`))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w)["details"], "role")
	})

	t.Run("backend conflict passes through", func(t *testing.T) {
		env := consoleEnv(t, models.AdminRoleDeveloper)
		console := new(MockAdminConsole)
		console.On("AddUser", mock.Anything, "admin-token", mock.Anything).
			Return(nil, &backend.APIError{StatusCode: http.StatusConflict, Detail: "User already exists"})
		h := NewAdminConsoleHandler(console, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleAddUser(w, env.request(http.MethodPost, "/api/admin-console/users",
			`{"email":"new@academy.edu","mobile_number":"1","institution_id":"`+ownInstitution+`","user_id":"x","role":"teacher"}`))

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "User already exists", decodeError(t, w)["message"])
	})
}

func TestAdminConsole_Institutions(t *testing.T) {
	env := consoleEnv(t, models.AdminRoleDeveloper)
	console := new(MockAdminConsole)
	console.On("CreateInstitution", mock.Anything, "admin-token", backend.CreateInstitutionRequest{Name: "XYZ Academy", Code: "XYZ"}).
		Return(&models.Institution{ID: ownInstitution, Name: "XYZ Academy", Code: "XYZ"}, nil)
	console.On("ListInstitutions", mock.Anything, "admin-token").
		Return([]models.Institution{{ID: ownInstitution, Name: "XYZ Academy", Code: "XYZ"}}, nil)
	h := NewAdminConsoleHandler(console, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleCreateInstitution(w, env.request(http.MethodPost, "/api/admin-console/institutions", `{"name":"XYZ Academy","code":"XYZ"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.HandleListInstitutions(w, env.request(http.MethodGet, "/api/admin-console/institutions", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var institutions []models.Institution
	decodeData(t, w, &institutions)
	require.Len(t, institutions, 1)
	assert.Equal(t, "XYZ", institutions[0].Code)
	console.AssertExpectations(t)
}

func TestAdminConsole_NoAdminSession(t *testing.T) {
	env := newTestEnv(t, nil)
	h := NewAdminConsoleHandler(new(MockAdminConsole), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleListInstitutions(w, env.request(http.MethodGet, "/api/admin-console/institutions", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
