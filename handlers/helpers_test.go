package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/repositories/memory"
	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/credentials"
	"github.com/edulytics/portal/services/guard"
	"github.com/edulytics/portal/services/profiles"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testProfileID = "0b8f6a52-5d0c-4e43-9a4e-6c1f0f3d2a10"

// MockBackend implements profiles.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Register(ctx context.Context, in backend.RegisterRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) UserLogin(ctx context.Context, email, password string) (*backend.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*backend.TokenResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) AdminLogin(ctx context.Context, email, password string) (*backend.AdminLoginResponse, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*backend.AdminLoginResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type testEnv struct {
	store    *memory.ProfileStore
	auditLog *memory.AuditRepository
	audit    *audit.AuditService
	provider *profiles.Provider
}

// newTestEnv builds a settled provider over a memory store. backend may be nil.
func newTestEnv(t *testing.T, be profiles.Backend) *testEnv {
	t.Helper()

	store := memory.NewProfileStore()
	return newTestEnvWithStore(t, store, be)
}

func newTestEnvWithStore(t *testing.T, store *memory.ProfileStore, be profiles.Backend) *testEnv {
	t.Helper()

	auditRepo := memory.NewAuditRepository(100)
	auditService := audit.NewAuditService(auditRepo, zap.NewNop(), audit.Config{BufferSize: 100, WorkerCount: 1})
	require.NoError(t, auditService.Start())
	t.Cleanup(func() { _ = auditService.Stop(time.Second) })

	registry := profiles.NewRegistry(store, credentials.NewDefaultStore(), be, profiles.Config{DemoEnabled: true}, zap.NewNop())
	p := registry.Get(testProfileID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.WaitReady(ctx, guard.ProviderUser))
	require.NoError(t, p.WaitReady(ctx, guard.ProviderAdmin))

	return &testEnv{store: store, auditLog: auditRepo, audit: auditService, provider: p}
}

// request builds a request carrying the env's profile
func (e *testEnv) request(method, target string, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	ctx := middleware.WithProfileID(req.Context(), e.provider.ID)
	ctx = middleware.WithProvider(ctx, e.provider)
	return req.WithContext(ctx)
}

// auditActions waits for the audit workers and returns the recorded actions
func (e *testEnv) auditActions(t *testing.T, want int) []models.AuditAction {
	t.Helper()
	var logs []*models.AuditLog
	require.Eventually(t, func() bool {
		var err error
		logs, err = e.auditLog.ListByProfile(context.Background(), e.provider.ID, 100)
		return err == nil && len(logs) >= want
	}, time.Second, 5*time.Millisecond)

	actions := make([]models.AuditAction, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func (e *testEnv) stored(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := e.store.Get(context.Background(), e.provider.ID, key)
	require.NoError(t, err)
	return v, ok
}

// seedAdmin persists an admin session so the next provider restores it
func seedAdmin(t *testing.T, store *memory.ProfileStore, user models.AdminUser) {
	t.Helper()
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, store.SetMany(context.Background(), testProfileID, map[string]string{
		repositories.KeyAdminUser:  string(raw),
		repositories.KeyAdminToken: "admin-token",
	}))
}

// decodeData unwraps the SuccessResponse envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}
