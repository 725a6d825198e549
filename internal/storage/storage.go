package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
)

var (
	// ErrNotFound is matched by the error returned for unknown ids.
	ErrNotFound = domain.ErrSessionNotFound
	ErrExists   = errors.New("session already exists")
)

// Store holds live sessions.
type Store interface {
	Create(session *models.Session) error
	Get(sessionID string) (*models.Session, error)
	Delete(sessionID string) error
	List() []*models.Session
}

// EvictFunc is called after a session has been removed by the retention sweep.
type EvictFunc func(session *models.Session)

type Memory struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
	ttl      time.Duration
	onEvict  EvictFunc
	now      func() time.Time
}

// NewMemory creates an in-memory store. Sessions idle for longer than ttl are evicted by Sweep;
// ttl <= 0 keeps them forever.
func NewMemory(ttl time.Duration, onEvict EvictFunc) *Memory {
	return &Memory{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		onEvict:  onEvict,
		now:      time.Now,
	}
}

func (s *Memory) Create(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: %s", ErrExists, session.ID)
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *Memory) Get(sessionID string) (*models.Session, error) {
	s.mu.RLock()
	session, exists := s.sessions[sessionID]
	s.mu.RUnlock()
	if !exists {
		return nil, domain.NotFoundError(sessionID)
	}
	session.Touch(s.now())
	return session, nil
}

func (s *Memory) List() []*models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	return result
}

func (s *Memory) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sessionID]; !exists {
		return domain.NotFoundError(sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

// Sweep evicts sessions idle since before now-ttl and returns how many were removed.
func (s *Memory) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := now.Add(-s.ttl)
	var evicted []*models.Session

	s.mu.Lock()
	for id, session := range s.sessions {
		if session.LastAccess().Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, session)
		}
	}
	s.mu.Unlock()

	for _, session := range evicted {
		slog.Info("Evicted idle session", "session_id", session.ID, "last_access", session.LastAccess())
		if s.onEvict != nil {
			s.onEvict(session)
		}
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (s *Memory) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.Sweep(t)
		}
	}
}
