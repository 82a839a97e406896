package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cellexec/internal/assets"
	"cellexec/internal/config"
	"cellexec/internal/history"
	"cellexec/internal/output"
	"cellexec/internal/security"
)

var (
	// ErrSessionExists means a session with the requested id is already live.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound means no live session carries the requested id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionLimit means the registry is at capacity.
	ErrSessionLimit = errors.New("session limit reached")
)

// Manager is the session registry. It owns session lifecycle: creation with
// notebook resolution, lookup with lazy expiry, explicit teardown, and the
// background idle sweep. The capacity and idle limits are atomics so config
// reloads can adjust them without a restart.
type Manager struct {
	cfg        *config.Config
	validator  *security.Validator
	marshaller *output.Marshaller
	fetcher    assets.Fetcher
	history    *history.Store
	logger     *zap.Logger

	maxSessions   atomic.Int64
	idleTimeout   atomic.Int64 // nanoseconds
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	// pending reserves ids while newSession runs outside the lock, so two
	// concurrent Starts for the same id cannot both build a session.
	pending map[string]bool
}

// NewManager builds the registry over its shared collaborators. fetcher and
// hist may be nil; sessions then run without asset staging or audit history.
func NewManager(cfg *config.Config, validator *security.Validator, fetcher assets.Fetcher,
	hist *history.Store, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:        cfg,
		validator:  validator,
		marshaller: output.NewMarshaller(cfg.Output),
		fetcher:    fetcher,
		history:    hist,
		logger:     logger,
		sessions:   make(map[string]*Session),
		pending:    make(map[string]bool),

		sweepInterval: cfg.SweepInterval(),
	}
	m.maxSessions.Store(int64(cfg.Sessions.MaxSessions))
	m.idleTimeout.Store(int64(cfg.SessionIdleTimeout()))
	return m
}

// Start creates a session from a notebook in the object store. An empty
// sessionID gets a generated one; the chosen id is returned. Expired
// sessions are swept first so a full registry of dead sessions does not
// block new work.
func (m *Manager) Start(ctx context.Context, sessionID, notebookPath, componentID string) (string, error) {
	m.Sweep()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := m.reserve(sessionID); err != nil {
		return "", err
	}
	defer func() {
		m.mu.Lock()
		delete(m.pending, sessionID)
		m.mu.Unlock()
	}()

	source, err := assets.ResolveNotebook(ctx, m.fetcher, notebookPath)
	if err != nil {
		return "", fmt.Errorf("failed to load notebook %s: %w", notebookPath, err)
	}

	s, err := newSession(ctx, sessionID, componentID, string(source), deps{
		cfg:        m.cfg,
		validator:  m.validator,
		marshaller: m.marshaller,
		fetcher:    m.fetcher,
		history:    m.history,
		logger:     m.logger,
	})
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[sessionID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.recordEvent(sessionID, "started", fmt.Sprintf("notebook=%s component=%s", notebookPath, componentID))
	m.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("notebook", notebookPath),
		zap.Int("active", count))
	return sessionID, nil
}

// StartWithSource creates a session directly from notebook source, bypassing
// the object store. Used by tests and local tooling.
func (m *Manager) StartWithSource(ctx context.Context, sessionID, source string) (string, error) {
	m.Sweep()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := m.reserve(sessionID); err != nil {
		return "", err
	}
	defer func() {
		m.mu.Lock()
		delete(m.pending, sessionID)
		m.mu.Unlock()
	}()

	s, err := newSession(ctx, sessionID, "", source, deps{
		cfg:        m.cfg,
		validator:  m.validator,
		marshaller: m.marshaller,
		fetcher:    m.fetcher,
		history:    m.history,
		logger:     m.logger,
	})
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.recordEvent(sessionID, "started", "")
	return sessionID, nil
}

// reserve claims an id against both live and in-flight sessions and
// enforces the capacity limit.
func (m *Manager) reserve(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	if m.pending[sessionID] {
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	if int64(len(m.sessions)+len(m.pending)) >= m.maxSessions.Load() {
		return fmt.Errorf("%w (%d)", ErrSessionLimit, m.maxSessions.Load())
	}
	m.pending[sessionID] = true
	return nil
}

// Get returns a live session. A session past the idle timeout is expired on
// access rather than returned; a returned session is touched.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if s.IdleFor() > time.Duration(m.idleTimeout.Load()) {
		m.expire(sessionID, s)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	s.Touch()
	return s, nil
}

// End tears down one session.
func (m *Manager) End(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	err := s.Close()
	m.recordEvent(sessionID, "ended", "")
	m.logger.Info("session ended", zap.String("session_id", sessionID))
	return err
}

// EndAll tears down every session; used at shutdown.
func (m *Manager) EndAll() {
	m.mu.Lock()
	doomed := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		doomed = append(doomed, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range doomed {
		s.Close()
		m.recordEvent(s.ID(), "ended", "shutdown")
	}
	if len(doomed) > 0 {
		m.logger.Info("all sessions ended", zap.Int("count", len(doomed)))
	}
}

// Sweep expires every session past the idle timeout and returns how many it
// removed. Closing happens outside the registry lock.
func (m *Manager) Sweep() int {
	timeout := time.Duration(m.idleTimeout.Load())

	m.mu.Lock()
	var doomed []*Session
	for id, s := range m.sessions {
		if s.IdleFor() > timeout {
			doomed = append(doomed, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range doomed {
		s.Close()
		m.recordEvent(s.ID(), "expired", "")
		m.logger.Info("session expired",
			zap.String("session_id", s.ID()),
			zap.Duration("idle", s.IdleFor()))
	}
	return len(doomed)
}

// RunSweeper runs periodic expiry sweeps until the context is cancelled.
func (m *Manager) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetMaxSessions adjusts the capacity limit; config reload hook. Existing
// sessions over a lowered limit are kept.
func (m *Manager) SetMaxSessions(n int) {
	m.maxSessions.Store(int64(n))
}

// SetIdleTimeout adjusts the idle expiry window; config reload hook.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	m.idleTimeout.Store(int64(d))
}

// expire removes one session found dead during Get.
func (m *Manager) expire(sessionID string, s *Session) {
	m.mu.Lock()
	// Re-check under the lock; another goroutine may have removed it.
	if current, ok := m.sessions[sessionID]; !ok || current != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	s.Close()
	m.recordEvent(sessionID, "expired", "")
	m.logger.Info("session expired on access", zap.String("session_id", sessionID))
}

func (m *Manager) recordEvent(sessionID, event, detail string) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordSessionEvent(sessionID, event, detail); err != nil {
		m.logger.Warn("failed to record session event",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
