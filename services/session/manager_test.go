package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/repositories/memory"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/services/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testProfile = "profile-1"

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Register(ctx context.Context, in backend.RegisterRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, in)
	if u := args.Get(0); u != nil {
		return u.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) UserLogin(ctx context.Context, email, password string) (*backend.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	if tok := args.Get(0); tok != nil {
		return tok.(*backend.TokenResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	args := m.Called(ctx, token)
	if p := args.Get(0); p != nil {
		return p.(*models.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// failingStore fails every write
type failingStore struct {
	*memory.ProfileStore
}

func (failingStore) Set(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func (failingStore) SetMany(context.Context, string, map[string]string) error {
	return errors.New("disk full")
}

func newManager(store repositories.ProfileStore, auth Authenticator) *Manager {
	return NewManager(testProfile, store, credentials.NewDefaultStore(), auth, Options{DemoEnabled: true}, zap.NewNop())
}

func TestManager_DemoLoginEveryRecord(t *testing.T) {
	for _, rec := range credentials.DefaultDemoUsers() {
		t.Run(rec.Email, func(t *testing.T) {
			store := memory.NewProfileStore()
			m := newManager(store, nil)
			require.NoError(t, m.Init(context.Background()))

			ok, err := m.Login(context.Background(), rec.Email, rec.Password)
			require.NoError(t, err)
			require.True(t, ok)

			assert.Equal(t, StatusActive, m.Status())
			mode, _ := m.Mode()
			role, _ := m.Role()
			assert.Equal(t, rec.Mode, mode)
			assert.Equal(t, rec.Role, role)

			// a fresh manager over the same store restores an identical session
			restored := newManager(store, nil)
			require.NoError(t, restored.Init(context.Background()))
			got, ok := restored.Session()
			require.True(t, ok)
			want, _ := m.Session()
			assert.Equal(t, want, got)
		})
	}
}

func TestManager_DemoLoginMismatch(t *testing.T) {
	store := memory.NewProfileStore()
	m := newManager(store, nil)
	require.NoError(t, m.Init(context.Background()))

	ok, err := m.Login(context.Background(), "student.xyz@academy.edu", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, has := m.Session()
	assert.False(t, has)
	assert.Equal(t, StatusCleared, m.Status())

	_, found, err := store.Get(context.Background(), testProfile, repositories.KeyUserSession)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManager_DemoLoginDisabled(t *testing.T) {
	m := NewManager(testProfile, memory.NewProfileStore(), credentials.NewDefaultStore(), nil, Options{}, zap.NewNop())
	rec := credentials.DefaultDemoUsers()[0]

	ok, err := m.Login(context.Background(), rec.Email, rec.Password)
	assert.False(t, ok)
	assert.ErrorIs(t, err, services.ErrDemoAuthDisabled)
}

func TestManager_PasswordNotPersisted(t *testing.T) {
	store := memory.NewProfileStore()
	m := newManager(store, nil)
	rec := credentials.DefaultDemoUsers()[1]

	ok, err := m.Login(context.Background(), rec.Email, rec.Password)
	require.NoError(t, err)
	require.True(t, ok)

	raw, found, err := store.Get(context.Background(), testProfile, repositories.KeyUserSession)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, raw, rec.Password)
}

func TestManager_InitCorruptRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{oops"},
		{"unknown role", `{"email":"a@b.c","mode":"personal","role":"principal"}`},
		{"missing email", `{"mode":"personal","role":"student"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewProfileStore()
			require.NoError(t, store.Set(ctx, testProfile, repositories.KeyUserSession, tt.raw))

			m := newManager(store, nil)
			require.NoError(t, m.Init(ctx))

			assert.Equal(t, StatusCleared, m.Status())
			_, found, err := store.Get(ctx, testProfile, repositories.KeyUserSession)
			require.NoError(t, err)
			assert.False(t, found, "corrupt record is removed")
		})
	}
}

func TestManager_ReadyClosesAfterInit(t *testing.T) {
	m := newManager(memory.NewProfileStore(), nil)
	assert.Equal(t, StatusChecking, m.Status())

	select {
	case <-m.Ready():
		t.Fatal("ready before init")
	default:
	}

	require.NoError(t, m.Init(context.Background()))
	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready not closed")
	}
}

func TestManager_InitDoesNotOverrideLogin(t *testing.T) {
	m := newManager(memory.NewProfileStore(), nil)
	rec := credentials.DefaultDemoUsers()[2]

	ok, err := m.Login(context.Background(), rec.Email, rec.Password)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Init(context.Background()))
	s, has := m.Session()
	require.True(t, has)
	assert.Equal(t, rec.Email, s.Email())
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	m := newManager(store, nil)
	rec := credentials.DefaultDemoUsers()[0]

	_, err := m.Login(ctx, rec.Email, rec.Password)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, testProfile, repositories.KeyAdminToken, "admin"))

	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Logout(ctx), "logout is idempotent")

	_, has := m.Session()
	assert.False(t, has)
	assert.Equal(t, StatusCleared, m.Status())

	for _, key := range repositories.UserSessionKeys() {
		_, found, err := store.Get(ctx, testProfile, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
	_, found, _ := store.Get(ctx, testProfile, repositories.KeyAdminToken)
	assert.True(t, found, "admin keys are untouched")
}

func TestManager_LoginStorageFailure(t *testing.T) {
	m := newManager(failingStore{memory.NewProfileStore()}, nil)
	rec := credentials.DefaultDemoUsers()[0]

	ok, err := m.Login(context.Background(), rec.Email, rec.Password)
	assert.False(t, ok)
	assert.ErrorIs(t, err, services.ErrStorageError)
	_, has := m.Session()
	assert.False(t, has)
}

func TestManager_LoginWithBackend(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	auth := new(MockAuthenticator)
	name := "Priya"
	teacher := "teacher"

	auth.On("UserLogin", mock.Anything, "priya@example.com", "secret").
		Return(&backend.TokenResponse{AccessToken: "tok", TokenType: "bearer"}, nil)
	auth.On("Me", mock.Anything, "tok").
		Return(&models.UserProfile{ID: "u1", Name: &name, Email: "priya@example.com", AccountType: &teacher}, nil)

	m := newManager(store, auth)
	require.NoError(t, m.Init(ctx))

	sess, err := m.LoginWithBackend(ctx, "priya@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.ModePersonal, sess.Mode())
	assert.Equal(t, models.UserRoleTeacher, sess.Role())
	assert.Equal(t, models.SessionSourceBackend, sess.Source())
	assert.True(t, m.HasBearerToken())

	tok, found, err := store.Get(ctx, testProfile, repositories.KeyUserToken)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok", tok)

	_, found, _ = store.Get(ctx, testProfile, repositories.KeyUserProfile)
	assert.True(t, found)
	auth.AssertExpectations(t)
}

func TestManager_LoginWithBackendRejected(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("UserLogin", mock.Anything, "a@b.c", "bad").
		Return(nil, &backend.APIError{StatusCode: 400, Detail: "Incorrect email or password"})

	m := newManager(memory.NewProfileStore(), auth)
	_, err := m.LoginWithBackend(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.True(t, services.IsUnauthorizedError(err))
	assert.Equal(t, "Incorrect email or password", services.GetErrorMessage(err))

	_, has := m.Session()
	assert.False(t, has)
	auth.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
}

func TestManager_LoginWithBackendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewProfileStore()
	auth := new(MockAuthenticator)
	auth.On("UserLogin", mock.Anything, "a@b.c", "pw").
		Return(&backend.TokenResponse{AccessToken: "tok"}, nil)
	auth.On("Me", mock.Anything, "tok").
		Run(func(mock.Arguments) { cancel() }).
		Return(&models.UserProfile{ID: "u1", Email: "a@b.c"}, nil)

	m := newManager(store, auth)
	_, err := m.LoginWithBackend(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, context.Canceled)

	_, has := m.Session()
	assert.False(t, has)
	_, found, _ := store.Get(context.Background(), testProfile, repositories.KeyUserSession)
	assert.False(t, found)
}

func TestManager_LoginWithBackendUnavailable(t *testing.T) {
	m := newManager(memory.NewProfileStore(), nil)
	_, err := m.LoginWithBackend(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, services.ErrBackendUnavailable)
}

func TestManager_Register(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	auth := new(MockAuthenticator)
	name := "Priya"

	auth.On("Register", mock.Anything, mock.MatchedBy(func(in backend.RegisterRequest) bool {
		return in.Email == "priya@example.com" && in.Password == "secret1" &&
			in.AccountType == "personal" && in.Name != nil && *in.Name == "Priya" && in.MobileNumber == nil
	})).Return(&models.UserProfile{ID: "u7", Name: &name, Email: "priya@example.com"}, nil)

	m := newManager(store, auth)
	require.NoError(t, m.Init(ctx))

	user, err := m.Register(ctx, Signup{Name: "Priya", Email: "priya@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u7", user.ID)

	// signing up does not log in
	_, has := m.Session()
	assert.False(t, has)
	_, found, _ := store.Get(ctx, testProfile, repositories.KeyUserSession)
	assert.False(t, found)
	auth.AssertExpectations(t)
}

func TestManager_RegisterEmailTaken(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Register", mock.Anything, mock.Anything).
		Return(nil, &backend.APIError{StatusCode: 400, Detail: "Email already registered"})

	m := newManager(memory.NewProfileStore(), auth)
	_, err := m.Register(context.Background(), Signup{Email: "a@b.co", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
	assert.Equal(t, "Email already registered", services.GetErrorMessage(err))
}

func TestManager_RegisterUnavailable(t *testing.T) {
	m := newManager(memory.NewProfileStore(), nil)
	_, err := m.Register(context.Background(), Signup{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrBackendUnavailable)
}

func TestManager_RawTokenOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	require.NoError(t, store.Set(ctx, testProfile, repositories.KeyUserToken, "stale"))

	m := newManager(store, nil)
	require.NoError(t, m.Init(ctx))

	assert.Equal(t, StatusCleared, m.Status())
	assert.True(t, m.HasBearerToken())
}
