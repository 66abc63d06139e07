package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"go.uber.org/zap"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// RequestMeta is the request context recorded with an event
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditService handles asynchronous audit logging. Auth never waits on it:
// when the buffer is full the event is dropped.
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.started = false
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("profile_id", event.Log.ProfileID))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking waits until the event is queued or ctx is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("profile_id", event.Log.ProfileID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// Recent returns the latest events of a profile, newest first
func (s *AuditService) Recent(ctx context.Context, profileID string, limit int) ([]*models.AuditLog, error) {
	return s.auditRepo.ListByProfile(ctx, profileID, limit)
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

func (s *AuditService) emit(log *models.AuditLog, meta RequestMeta) error {
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogUserLogin records a successful end-user login
func (s *AuditService) LogUserLogin(profileID string, sess models.Session, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionUserLogin).
		WithIdentity(sess.Email(), models.RoleOf(sess.Role())).
		WithDetails(map[string]interface{}{
			"mode":   sess.Mode(),
			"source": sess.Source(),
		})
	return s.emit(log, meta)
}

// LogUserLoginFailed records a rejected end-user login. The password is never recorded.
func (s *AuditService) LogUserLoginFailed(profileID, email string, source models.SessionSource, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionUserLoginFailed).
		WithIdentity(email, "").
		WithDetails(map[string]interface{}{"source": source})
	return s.emit(log, meta)
}

// LogUserLogout records an end-user logout
func (s *AuditService) LogUserLogout(profileID, email string, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionUserLogout).WithIdentity(email, "")
	return s.emit(log, meta)
}

// LogAdminLogin records a successful admin login
func (s *AuditService) LogAdminLogin(profileID string, admin models.AdminUser, portal models.AdminPortal, meta RequestMeta) error {
	details := map[string]interface{}{"portal": portal}
	if admin.InstitutionID != nil {
		details["institution_id"] = *admin.InstitutionID
	}
	log := models.NewAuditLog(profileID, models.AuditActionAdminLogin).
		WithIdentity(admin.Email, models.RoleOf(admin.Role)).
		WithDetails(details)
	return s.emit(log, meta)
}

// LogAdminLoginFailed records a rejected admin login with the reason shown to the user
func (s *AuditService) LogAdminLoginFailed(profileID, email string, portal models.AdminPortal, reason string, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionAdminLoginFailed).
		WithIdentity(email, "").
		WithDetails(map[string]interface{}{"portal": portal, "reason": reason})
	return s.emit(log, meta)
}

// LogAdminLogout records an admin logout
func (s *AuditService) LogAdminLogout(profileID, email string, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionAdminLogout).WithIdentity(email, "")
	return s.emit(log, meta)
}

// LogGate records a developer gate submission
func (s *AuditService) LogGate(profileID string, passed bool, meta RequestMeta) error {
	action := models.AuditActionGateDenied
	if passed {
		action = models.AuditActionGatePassed
	}
	return s.emit(models.NewAuditLog(profileID, action), meta)
}

// LogGuardDenied records a request turned away by a route guard
func (s *AuditService) LogGuardDenied(profileID, policy, path, redirect string, meta RequestMeta) error {
	log := models.NewAuditLog(profileID, models.AuditActionGuardDenied).
		WithDetails(map[string]interface{}{
			"guard":    policy,
			"path":     path,
			"redirect": redirect,
		})
	return s.emit(log, meta)
}
