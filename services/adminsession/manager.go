// Package adminsession owns the admin session of one browser profile. It is
// independent of the end-user session: the two use disjoint keys and neither
// invalidates the other.
package adminsession

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/services"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a manager
type Status string

const (
	StatusChecking Status = "checking"
	StatusActive   Status = "active"
	StatusCleared  Status = "cleared"
)

// Authenticator is the slice of the backend client used for admin login
type Authenticator interface {
	AdminLogin(ctx context.Context, email, password string) (*backend.AdminLoginResponse, error)
}

// Manager holds one profile's admin session
type Manager struct {
	profileID string
	store     repositories.ProfileStore
	auth      Authenticator
	logger    *zap.Logger

	mu      sync.RWMutex
	status  Status
	session *models.AdminSession

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a manager in the checking state
func NewManager(profileID string, store repositories.ProfileStore, auth Authenticator, logger *zap.Logger) *Manager {
	return &Manager{
		profileID: profileID,
		store:     store,
		auth:      auth,
		logger:    logger.With(zap.String("profile_id", profileID)),
		status:    StatusChecking,
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the manager leaves the checking state
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) settle() {
	m.readyOnce.Do(func() { close(m.ready) })
}

// Init restores a persisted admin session. Both the record and the token must
// be present; the token's freshness is not checked.
func (m *Manager) Init(ctx context.Context) error {
	rawUser, hasUser, err := m.store.Get(ctx, m.profileID, repositories.KeyAdminUser)
	if err != nil {
		m.logger.Error("failed to read persisted admin", zap.Error(err))
		m.finishInit(nil)
		return services.WrapStorage(err)
	}
	token, hasToken, err := m.store.Get(ctx, m.profileID, repositories.KeyAdminToken)
	if err != nil {
		m.logger.Error("failed to read persisted admin token", zap.Error(err))
		m.finishInit(nil)
		return services.WrapStorage(err)
	}

	if !hasUser || !hasToken {
		m.finishInit(nil)
		return nil
	}

	user, err := models.DecodeAdminUser(rawUser)
	if err != nil || token == "" {
		m.logger.Warn("discarding unreadable admin session", zap.Error(err))
		if delErr := m.store.Delete(ctx, m.profileID, repositories.AdminSessionKeys()...); delErr != nil {
			m.logger.Error("failed to remove admin session", zap.Error(delErr))
		}
		m.finishInit(nil)
		return nil
	}

	m.finishInit(&models.AdminSession{User: user, Token: token})
	return nil
}

func (m *Manager) finishInit(s *models.AdminSession) {
	m.mu.Lock()
	if m.status == StatusChecking {
		m.session = s
		if s == nil {
			m.status = StatusCleared
		} else {
			m.status = StatusActive
		}
	}
	m.mu.Unlock()
	m.settle()
}

// Login authenticates against the backend and adopts the returned admin.
// portal restricts which role may log in from that screen; an empty portal
// accepts either role. The landing path for the admin's role is returned.
func (m *Manager) Login(ctx context.Context, email, password string, portal models.AdminPortal) (string, error) {
	if m.auth == nil {
		return "", services.ErrBackendUnavailable
	}

	resp, err := m.auth.AdminLogin(ctx, email, password)
	if err != nil {
		return "", services.MapBackendLoginError(err)
	}
	if !resp.Admin.Role.Valid() || resp.AccessToken == "" {
		return "", services.WrapExternal("backend returned an unusable admin login", nil)
	}

	switch portal {
	case models.AdminPortalDeveloper:
		if resp.Admin.Role != models.AdminRoleDeveloper {
			return "", services.ErrNotDeveloperAdmin
		}
	case models.AdminPortalInstitution:
		if resp.Admin.Role != models.AdminRoleInstitution {
			return "", services.ErrInvalidAdminType
		}
	}

	user := resp.Admin.Normalize()
	raw, err := json.Marshal(user)
	if err != nil {
		return "", services.WrapInternal("encode admin", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.store.SetMany(ctx, m.profileID, map[string]string{
		repositories.KeyAdminUser:  string(raw),
		repositories.KeyAdminToken: resp.AccessToken,
	}); err != nil {
		return "", services.WrapStorage(err)
	}

	m.mu.Lock()
	m.session = &models.AdminSession{User: user, Token: resp.AccessToken}
	m.status = StatusActive
	m.mu.Unlock()
	m.settle()

	m.logger.Info("admin login",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))
	return models.LandingPath(user.Role), nil
}

// Logout clears the admin session in memory and in the store
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.status = StatusCleared
	m.mu.Unlock()
	m.settle()

	if err := m.store.Delete(ctx, m.profileID, repositories.AdminSessionKeys()...); err != nil {
		return services.WrapStorage(err)
	}
	return nil
}

// Status returns the lifecycle state
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Session returns a copy of the admin session, if any
func (m *Manager) Session() (models.AdminSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return models.AdminSession{}, false
	}
	return *m.session, true
}

// IsAuthenticated reports whether an admin session exists
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Session()
	return ok
}

// Role returns the admin's role, if any
func (m *Manager) Role() (models.AdminRole, bool) {
	s, ok := m.Session()
	return s.User.Role, ok
}

// Token returns the stored bearer token. It is never refreshed.
func (m *Manager) Token() (string, bool) {
	s, ok := m.Session()
	return s.Token, ok
}

// HasPermission reports whether the admin's role is one of required. There
// is no hierarchy between roles and an empty set grants nothing.
func (m *Manager) HasPermission(required ...models.AdminRole) bool {
	role, ok := m.Role()
	if !ok {
		return false
	}
	return slices.Contains(required, role)
}
