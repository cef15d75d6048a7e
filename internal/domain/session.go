package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionTTL is how long a session lives without being validated.
// Every successful validation pushes the expiry forward by this much.
const SessionTTL = time.Hour

// Session represents a portal login session
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore defines the interface for session data access
type SessionStore interface {
	// Create generates a new random session identifier and stores it
	// with an expiry of now + SessionTTL.
	Create(ctx context.Context) (*Session, error)
	// ValidateAndExtend reports whether the session is valid. A valid
	// session has its expiry pushed to now + SessionTTL. An expired
	// session is removed and reported invalid, same as an unknown one.
	ValidateAndExtend(ctx context.Context, id string) (bool, error)
	// Get returns the stored session without touching its expiry.
	// Returns ErrSessionNotFound for an unknown or expired identifier.
	Get(ctx context.Context, id string) (*Session, error)
	// Destroy removes the session. Destroying an absent session is not
	// an error.
	Destroy(ctx context.Context, id string) error
	// DeleteExpired removes every session past its expiry and returns
	// how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
	// Count returns the number of stored sessions, expired or not.
	Count(ctx context.Context) (int, error)
}
