// Package profiles keeps the live session managers of each browser profile.
package profiles

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/services/adminsession"
	"github.com/edulytics/portal/services/credentials"
	"github.com/edulytics/portal/services/guard"
	"github.com/edulytics/portal/services/session"
	"go.uber.org/zap"
)

// Backend is what the managers need from the backend client
type Backend interface {
	session.Authenticator
	adminsession.Authenticator
}

// Provider bundles the two session managers of one profile
type Provider struct {
	ID    string
	User  *session.Manager
	Admin *adminsession.Manager

	lastSeen atomic.Int64
}

func (p *Provider) touch(now time.Time) {
	p.lastSeen.Store(now.UnixNano())
}

// LastSeen is when the provider was last handed out
func (p *Provider) LastSeen() time.Time {
	return time.Unix(0, p.lastSeen.Load())
}

// Snapshot captures the state the guards decide on
func (p *Provider) Snapshot() guard.Snapshot {
	snap := guard.Snapshot{
		UserReady:     p.User.Status() != session.StatusChecking,
		HasUserToken:  p.User.HasBearerToken(),
		AdminReady:    p.Admin.Status() != adminsession.StatusChecking,
		HasPermission: p.Admin.HasPermission,
	}
	_, snap.HasUserSession = p.User.Session()
	return snap
}

// WaitReady blocks until the given manager has settled or ctx is done
func (p *Provider) WaitReady(ctx context.Context, which guard.Provider) error {
	var ready <-chan struct{}
	switch which {
	case guard.ProviderAdmin:
		ready = p.Admin.Ready()
	default:
		ready = p.User.Ready()
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config configures a Registry
type Config struct {
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	InitTimeout     time.Duration
	DemoEnabled     bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		IdleTTL:         30 * time.Minute,
		JanitorInterval: time.Minute,
		InitTimeout:     10 * time.Second,
		DemoEnabled:     false,
	}
}

// Registry maps profile ids to providers and evicts idle ones. Eviction only
// drops memory; the sessions are persisted and come back on the next request.
type Registry struct {
	store   repositories.ProfileStore
	creds   *credentials.Store
	backend Backend
	config  Config
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	providers map[string]*Provider

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewRegistry creates a registry
func NewRegistry(store repositories.ProfileStore, creds *credentials.Store, backend Backend, config Config, logger *zap.Logger) *Registry {
	defaults := DefaultConfig()
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.JanitorInterval <= 0 {
		config.JanitorInterval = defaults.JanitorInterval
	}
	if config.InitTimeout <= 0 {
		config.InitTimeout = defaults.InitTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:     store,
		creds:     creds,
		backend:   backend,
		config:    config,
		logger:    logger,
		now:       time.Now,
		providers: make(map[string]*Provider),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Get returns the provider for a profile, creating it on first use. A new
// provider starts restoring both sessions in the background and Get does not
// wait for that.
func (r *Registry) Get(profileID string) *Provider {
	now := r.now()

	r.mu.Lock()
	p, ok := r.providers[profileID]
	if !ok {
		p = r.newProvider(profileID)
		r.providers[profileID] = p
	}
	p.touch(now)
	r.mu.Unlock()

	if !ok {
		r.initProvider(p)
	}
	return p
}

func (r *Registry) newProvider(profileID string) *Provider {
	var userAuth session.Authenticator
	var adminAuth adminsession.Authenticator
	if r.backend != nil {
		userAuth = r.backend
		adminAuth = r.backend
	}
	return &Provider{
		ID:    profileID,
		User:  session.NewManager(profileID, r.store, r.creds, userAuth, session.Options{DemoEnabled: r.config.DemoEnabled}, r.logger),
		Admin: adminsession.NewManager(profileID, r.store, adminAuth, r.logger),
	}
}

func (r *Registry) initProvider(p *Provider) {
	type initer interface{ Init(context.Context) error }
	for name, m := range map[string]initer{"user": p.User, "admin": p.Admin} {
		r.wg.Add(1)
		go func(name string, m initer) {
			defer r.wg.Done()
			ctx, cancel := context.WithTimeout(r.ctx, r.config.InitTimeout)
			defer cancel()
			if err := m.Init(ctx); err != nil {
				r.logger.Error("failed to restore session",
					zap.String("profile_id", p.ID),
					zap.String("session", name),
					zap.Error(err))
			}
		}(name, m)
	}
}

// Len returns the number of live providers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.providers)
}

// EvictIdle drops providers not seen for the idle TTL and returns how many
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, p := range r.providers {
		if p.LastSeen().Before(cutoff) {
			delete(r.providers, id)
			evicted++
		}
	}
	return evicted
}

// Start starts the janitor
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("profile registry already started")
	}

	r.wg.Add(1)
	go r.janitor()

	r.started = true
	r.logger.Info("started profile registry",
		zap.Duration("idle_ttl", r.config.IdleTTL),
		zap.Duration("janitor_interval", r.config.JanitorInterval))
	return nil
}

func (r *Registry) janitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logger.Debug("evicted idle profiles", zap.Int("count", n))
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// Stop stops the janitor and cancels in-flight restores
func (r *Registry) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return fmt.Errorf("profile registry not started")
	}
	r.started = false
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("profile registry stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("profile registry stop timeout after %v", timeout)
	}
}
