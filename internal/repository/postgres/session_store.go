package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"central-portal/internal/domain"
	"central-portal/internal/security"
)

// SessionStore persists sessions in PostgreSQL so they survive a restart.
// All statements are prepared once at construction.
type SessionStore struct {
	db                *sql.DB
	createStmt        *sql.Stmt
	extendStmt        *sql.Stmt
	getStmt           *sql.Stmt
	destroyStmt       *sql.Stmt
	reapStmt          *sql.Stmt
	deleteExpiredStmt *sql.Stmt
	countStmt         *sql.Stmt
	now               func() time.Time
}

// Option configures a SessionStore
type Option func(*SessionStore)

// WithClock substitutes the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates a SessionStore with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionStore(db *sql.DB, opts ...Option) (*SessionStore, error) {
	store := &SessionStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	var err error
	store.createStmt, err = db.Prepare(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	store.extendStmt, err = db.Prepare(`
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare extend statement: %w", err)
	}

	store.getStmt, err = db.Prepare(`
		SELECT id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}

	store.destroyStmt, err = db.Prepare(`DELETE FROM sessions WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare destroy statement: %w", err)
	}

	store.reapStmt, err = db.Prepare(`DELETE FROM sessions WHERE id = $1 AND expires_at <= $2`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reap statement: %w", err)
	}

	store.deleteExpiredStmt, err = db.Prepare(`DELETE FROM sessions WHERE expires_at <= $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	store.countStmt, err = db.Prepare(`SELECT COUNT(*) FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare count statement: %w", err)
	}

	return store, nil
}

func (s *SessionStore) Create(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}

	// A 256-bit identifier colliding with a live row is effectively
	// impossible, but the primary key makes it a visible error rather
	// than a silent overwrite, so retry once anyway.
	for attempt := 0; attempt < 2; attempt++ {
		id, err := security.NewSessionID()
		if err != nil {
			return nil, err
		}
		session.ID = id

		_, err = s.createStmt.ExecContext(ctx, session.ID, session.CreatedAt, session.ExpiresAt)
		if err == nil {
			return session, nil
		}
		if !IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create session: identifier collision")
}

func (s *SessionStore) ValidateAndExtend(ctx context.Context, id string) (bool, error) {
	now := s.now()

	result, err := s.extendStmt.ExecContext(ctx, id, now.Add(domain.SessionTTL), now)
	if err != nil {
		return false, fmt.Errorf("failed to extend session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Either unknown or expired; remove the row if it expired so the
	// table does not wait on the sweeper.
	if _, err := s.reapStmt.ExecContext(ctx, id, now); err != nil {
		return false, fmt.Errorf("failed to reap session: %w", err)
	}
	return false, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	session := &domain.Session{}
	err := s.getStmt.QueryRowContext(ctx, id, s.now()).Scan(
		&session.ID,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	_, err := s.destroyStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.deleteExpiredStmt.ExecContext(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.countStmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
