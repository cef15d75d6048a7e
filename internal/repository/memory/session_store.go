package memory

import (
	"context"
	"sync"
	"time"

	"central-portal/internal/domain"
	"central-portal/internal/security"
)

// SessionStore keeps sessions in a mutex-protected map. It is the default
// backend; sessions do not survive a restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// Option configures a SessionStore
type Option func(*SessionStore)

// WithClock substitutes the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore(opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Create(ctx context.Context) (*domain.Session, error) {
	id, err := security.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	copy := *session
	return &copy, nil
}

func (s *SessionStore) ValidateAndExtend(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false, nil
	}

	now := s.now()
	if session.Expired(now) {
		delete(s.sessions, id)
		return false, nil
	}

	session.ExpiresAt = now.Add(domain.SessionTTL)
	return true, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || session.Expired(s.now()) {
		return nil, domain.ErrSessionNotFound
	}

	copy := *session
	return &copy, nil
}

func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
