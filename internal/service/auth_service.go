package service

import (
	"context"

	"central-portal/internal/domain"
	"central-portal/internal/observability"
)

// TokenSource yields a valid vendor bearer token. Satisfied by the
// token manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AuthService runs the portal login flow. The portal holds the vendor
// credentials itself, so a login carries no user secret: it proves the
// backend can reach the vendor API, then hands out a session identifier
// that stands in for the bearer token on every later request.
type AuthService struct {
	tokens   TokenSource
	sessions domain.SessionStore
}

func NewAuthService(tokens TokenSource, sessions domain.SessionStore) *AuthService {
	return &AuthService{
		tokens:   tokens,
		sessions: sessions,
	}
}

// Login acquires a vendor token, then creates a session. A token failure
// aborts the login so the frontend learns about bad credentials at login
// time rather than on its first proxied call.
func (s *AuthService) Login(ctx context.Context) (*domain.Session, error) {
	if _, err := s.tokens.Token(ctx); err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}

	observability.SessionsCreatedTotal.Inc()
	observability.FromContext(ctx).Info("session created",
		"expires_at", session.ExpiresAt)

	return session, nil
}

// Logout destroys the session. Logging out an already-gone session
// succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// SessionInfo returns the stored session for the info endpoint.
func (s *AuthService) SessionInfo(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}
