// Package session owns the end-user session of one browser profile: the demo
// login, the backend-verified personal login and logout, with the session
// mirrored to the profile store.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/services/credentials"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a manager
type Status string

const (
	StatusChecking Status = "checking"
	StatusActive   Status = "active"
	StatusCleared  Status = "cleared"
)

// Authenticator is the slice of the backend client used for personal signup and login
type Authenticator interface {
	Register(ctx context.Context, in backend.RegisterRequest) (*models.UserProfile, error)
	UserLogin(ctx context.Context, email, password string) (*backend.TokenResponse, error)
	Me(ctx context.Context, token string) (*models.UserProfile, error)
}

// Signup is a personal account registration
type Signup struct {
	Name         string
	Email        string
	MobileNumber string
	Password     string
}

// Options configures a Manager
type Options struct {
	DemoEnabled bool
}

// Manager holds one profile's end-user session
type Manager struct {
	profileID   string
	store       repositories.ProfileStore
	creds       *credentials.Store
	auth        Authenticator
	demoEnabled bool
	logger      *zap.Logger

	mu       sync.RWMutex
	status   Status
	session  models.Session
	hasToken bool

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a manager in the checking state. auth may be nil, in
// which case personal login reports the backend as unavailable.
func NewManager(profileID string, store repositories.ProfileStore, creds *credentials.Store, auth Authenticator, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		profileID:   profileID,
		store:       store,
		creds:       creds,
		auth:        auth,
		demoEnabled: opts.DemoEnabled,
		logger:      logger.With(zap.String("profile_id", profileID)),
		status:      StatusChecking,
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the manager leaves the checking state
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) settle() {
	m.readyOnce.Do(func() { close(m.ready) })
}

// Init restores the persisted session. A record that cannot be decoded is
// treated as no session and removed. Init only applies while the manager is
// still checking, so a login that completed first is never overwritten.
func (m *Manager) Init(ctx context.Context) error {
	raw, found, err := m.store.Get(ctx, m.profileID, repositories.KeyUserSession)
	if err != nil {
		m.logger.Error("failed to read persisted session", zap.Error(err))
		m.finishInit(models.Session{}, false)
		return services.WrapStorage(err)
	}
	_, hasToken, err := m.store.Get(ctx, m.profileID, repositories.KeyUserToken)
	if err != nil {
		m.logger.Error("failed to read persisted token", zap.Error(err))
		m.finishInit(models.Session{}, false)
		return services.WrapStorage(err)
	}

	if !found {
		m.finishInit(models.Session{}, hasToken)
		return nil
	}

	sess, err := models.DecodeSession(raw)
	if err != nil {
		m.logger.Warn("discarding unreadable persisted session", zap.Error(err))
		if delErr := m.store.Delete(ctx, m.profileID, repositories.KeyUserSession); delErr != nil {
			m.logger.Error("failed to remove unreadable session", zap.Error(delErr))
		}
		m.finishInit(models.Session{}, hasToken)
		return nil
	}

	m.finishInit(sess, hasToken)
	return nil
}

func (m *Manager) finishInit(sess models.Session, hasToken bool) {
	m.mu.Lock()
	if m.status == StatusChecking {
		m.session = sess
		m.hasToken = hasToken
		if sess.IsZero() {
			m.status = StatusCleared
		} else {
			m.status = StatusActive
		}
	}
	m.mu.Unlock()
	m.settle()
}

// Login checks email and password against the demo allow-list. A mismatch
// returns false with no error and leaves the current state untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (bool, error) {
	if !m.demoEnabled {
		return false, services.ErrDemoAuthDisabled
	}
	rec, ok := m.creds.Lookup(email, password)
	if !ok {
		return false, nil
	}

	sess := models.NewDemoSession(rec)
	raw, err := json.Marshal(sess)
	if err != nil {
		return false, services.WrapInternal("encode session", err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := m.store.Delete(ctx, m.profileID, repositories.KeyUserToken, repositories.KeyUserProfile); err != nil {
		return false, services.WrapStorage(err)
	}
	if err := m.store.Set(ctx, m.profileID, repositories.KeyUserSession, string(raw)); err != nil {
		return false, services.WrapStorage(err)
	}

	m.adopt(sess, false)
	m.logger.Info("demo login",
		zap.String("email", sess.Email()),
		zap.String("mode", string(sess.Mode())),
		zap.String("role", string(sess.Role())))
	return true, nil
}

// Register creates a personal account on the backend. It does not log in:
// the caller is sent to the personal login afterwards. A taken email is a
// validation error carrying the backend's message.
func (m *Manager) Register(ctx context.Context, in Signup) (*models.UserProfile, error) {
	if m.auth == nil {
		return nil, services.ErrBackendUnavailable
	}

	req := backend.RegisterRequest{
		Email:       in.Email,
		AccountType: string(models.ModePersonal),
		Password:    in.Password,
	}
	if in.Name != "" {
		req.Name = &in.Name
	}
	if in.MobileNumber != "" {
		req.MobileNumber = &in.MobileNumber
	}

	user, err := m.auth.Register(ctx, req)
	if err != nil {
		return nil, services.MapBackendError(err)
	}
	m.logger.Info("personal signup", zap.String("email", user.Email))
	return user, nil
}

// LoginWithBackend performs the personal login against the backend: the
// credentials are exchanged for a token and only the profile returned by
// /auth/me for that token becomes the session.
func (m *Manager) LoginWithBackend(ctx context.Context, email, password string) (models.Session, error) {
	if m.auth == nil {
		return models.Session{}, services.ErrBackendUnavailable
	}

	tok, err := m.auth.UserLogin(ctx, email, password)
	if err != nil {
		return models.Session{}, services.MapBackendLoginError(err)
	}
	profile, err := m.auth.Me(ctx, tok.AccessToken)
	if err != nil {
		return models.Session{}, services.MapBackendError(err)
	}
	sess, err := models.NewBackendSession(*profile)
	if err != nil {
		return models.Session{}, services.WrapExternal("backend returned an incomplete profile", err)
	}

	rawSession, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, services.WrapInternal("encode session", err)
	}
	rawProfile, err := json.Marshal(profile)
	if err != nil {
		return models.Session{}, services.WrapInternal("encode profile", err)
	}

	// a request that went away while the backend answered must not log in
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	if err := m.store.SetMany(ctx, m.profileID, map[string]string{
		repositories.KeyUserSession: string(rawSession),
		repositories.KeyUserToken:   tok.AccessToken,
		repositories.KeyUserProfile: string(rawProfile),
	}); err != nil {
		return models.Session{}, services.WrapStorage(err)
	}

	m.adopt(sess, true)
	m.logger.Info("personal login",
		zap.String("email", sess.Email()),
		zap.String("role", string(sess.Role())))
	return sess, nil
}

func (m *Manager) adopt(sess models.Session, hasToken bool) {
	m.mu.Lock()
	m.session = sess
	m.hasToken = hasToken
	m.status = StatusActive
	m.mu.Unlock()
	m.settle()
}

// Logout clears the session in memory and in the store. Logging out without
// a session is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.session = models.Session{}
	m.hasToken = false
	m.status = StatusCleared
	m.mu.Unlock()
	m.settle()

	if err := m.store.Delete(ctx, m.profileID, repositories.UserSessionKeys()...); err != nil {
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

// Session returns the active session, if any
func (m *Manager) Session() (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, !m.session.IsZero()
}

// Mode returns the session's mode, if any
func (m *Manager) Mode() (models.Mode, bool) {
	s, ok := m.Session()
	return s.Mode(), ok
}

// Role returns the session's role, if any
func (m *Manager) Role() (models.UserRole, bool) {
	s, ok := m.Session()
	return s.Role(), ok
}

// HasBearerToken reports whether a raw backend token is persisted
func (m *Manager) HasBearerToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasToken
}
