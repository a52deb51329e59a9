package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are sent before Start or after Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when the event buffer cannot take more events
	ErrBufferFull = errors.New("audit event buffer full")
)

// AuditService writes the authentication audit trail asynchronously
type AuditService struct {
	repo        repositories.AuthEventRepository
	logger      *zap.Logger
	eventChan   chan *models.AuthEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	// mu guards started/stopped; senders hold the read lock so Stop
	// never closes the channel under them.
	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repositories.AuthEventRepository, logger *zap.Logger, config Config) *AuditService {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		repo:        repo,
		logger:      logger,
		eventChan:   make(chan *models.AuthEvent, config.BufferSize),
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

	if s.started {
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
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

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

// LogEvent queues an event without blocking
func (s *AuditService) LogEvent(event *models.AuthEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("email", event.Email))
		return ErrBufferFull
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
				zap.String("action", string(event.Action)),
				zap.String("email", event.Email))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *models.AuthEvent) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to insert auth event: %w", err)
	}
	return nil
}

// Convenience methods for the auth flows. Failures to queue are logged
// and swallowed: the audit trail never fails a login.

// LogRegister records a new account
func (s *AuditService) LogRegister(user *models.User, meta models.RequestMeta) {
	s.queue(models.NewAuthEvent(models.AuthActionRegister, user.Email).
		WithUser(user.ID).
		WithMeta(meta))
}

// LogLogin records a successful login
func (s *AuditService) LogLogin(user *models.User, meta models.RequestMeta) {
	s.queue(models.NewAuthEvent(models.AuthActionLogin, user.Email).
		WithUser(user.ID).
		WithMeta(meta))
}

// LogLoginFailed records a rejected login attempt
func (s *AuditService) LogLoginFailed(email, reason string, meta models.RequestMeta) {
	s.queue(models.NewAuthEvent(models.AuthActionLoginFailed, email).
		WithDetails(map[string]string{"reason": reason}).
		WithMeta(meta))
}

// LogRefresh records a refreshed token pair
func (s *AuditService) LogRefresh(user *models.User, meta models.RequestMeta) {
	s.queue(models.NewAuthEvent(models.AuthActionRefresh, user.Email).
		WithUser(user.ID).
		WithMeta(meta))
}

// LogRefreshFailed records a rejected refresh token
func (s *AuditService) LogRefreshFailed(email, reason string, meta models.RequestMeta) {
	s.queue(models.NewAuthEvent(models.AuthActionRefreshFailed, email).
		WithDetails(map[string]string{"reason": reason}).
		WithMeta(meta))
}

func (s *AuditService) queue(event *models.AuthEvent) {
	if err := s.LogEvent(event); err != nil {
		s.logger.Debug("auth event not queued",
			zap.String("action", string(event.Action)),
			zap.Error(err))
	}
}
