package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"central-portal/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStore(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails_when_prepare_create_fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).WillReturnError(errors.New("prepare failed"))

		store, err := NewSessionStore(db)
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "failed to prepare create statement")
	})
}

func TestSessionStore_Create(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		now := time.Unix(1000, 0)
		store, err := NewSessionStore(db, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).
			WithArgs(sqlmock.AnyArg(), now, now.Add(domain.SessionTTL)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		session, err := store.Create(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.Equal(t, now, session.CreatedAt)
		assert.Equal(t, now.Add(domain.SessionTTL), session.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries_on_identifier_collision", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "sessions_pkey"})

		mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		session, err := store.Create(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).
			WillReturnError(errors.New("database error"))

		session, err := store.Create(context.Background())
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Contains(t, err.Error(), "failed to create session")
	})
}

func TestSessionStore_ValidateAndExtend(t *testing.T) {
	t.Run("valid_session_extended", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		now := time.Unix(3000, 0)
		store, err := NewSessionStore(db, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
	`)).
			WithArgs("session-1", now.Add(domain.SessionTTL), now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		valid, err := store.ValidateAndExtend(context.Background(), "session-1")
		require.NoError(t, err)
		assert.True(t, valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_or_expired_session_reaped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
	`)).
			WithArgs("session-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1 AND expires_at <= $2`)).
			WithArgs("session-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		valid, err := store.ValidateAndExtend(context.Background(), "session-1")
		require.NoError(t, err)
		assert.False(t, valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
	`)).
			WillReturnError(errors.New("database error"))

		valid, err := store.ValidateAndExtend(context.Background(), "session-1")
		require.Error(t, err)
		assert.False(t, valid)
		assert.Contains(t, err.Error(), "failed to extend session")
	})
}

func TestSessionStore_Get(t *testing.T) {
	t.Run("successful_retrieval", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		createdAt := time.Now()
		expiresAt := createdAt.Add(domain.SessionTTL)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`)).
			WithArgs("session-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "expires_at"}).
				AddRow("session-1", createdAt, expiresAt))

		session, err := store.Get(context.Background(), "session-1")
		require.NoError(t, err)
		assert.Equal(t, "session-1", session.ID)
		assert.Equal(t, createdAt, session.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("session_not_found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`)).
			WithArgs("nonexistent", sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)

		session, err := store.Get(context.Background(), "nonexistent")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Equal(t, domain.ErrSessionNotFound, err)
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`)).
			WithArgs("session-1", sqlmock.AnyArg()).
			WillReturnError(errors.New("database error"))

		session, err := store.Get(context.Background(), "session-1")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Contains(t, err.Error(), "failed to get session")
	})
}

func TestSessionStore_Destroy(t *testing.T) {
	t.Run("successful_destroy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).
			WithArgs("session-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = store.Destroy(context.Background(), "session-1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("destroy_absent_session", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		// Destroying an absent session is not an error
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).
			WithArgs("nonexistent").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = store.Destroy(context.Background(), "nonexistent")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).
			WithArgs("session-1").
			WillReturnError(errors.New("database error"))

		err = store.Destroy(context.Background(), "session-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to destroy session")
	})
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	t.Run("successful_deletion", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 5))

		count, err := store.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_expired_sessions", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := store.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rows_affected_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewErrorResult(errors.New("failed to get rows affected")))

		count, err := store.DeleteExpired(context.Background())
		require.Error(t, err)
		assert.Equal(t, int64(0), count)
		assert.Contains(t, err.Error(), "failed to get rows affected")
	})
}

func TestSessionStore_Count(t *testing.T) {
	t.Run("returns_count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM sessions`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, count)
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		setupSessionStoreMocks(mock)

		store, err := NewSessionStore(db)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM sessions`)).
			WillReturnError(errors.New("database error"))

		count, err := store.Count(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, count)
		assert.Contains(t, err.Error(), "failed to count sessions")
	})
}

// Helper function to set up common mock expectations
func setupSessionStoreMocks(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare(regexp.QuoteMeta(`
		INSERT INTO sessions (id, created_at, expires_at)
		VALUES ($1, $2, $3)
	`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND expires_at > $3
	`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`
		SELECT id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1 AND expires_at <= $2`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).WillReturnCloseError(nil)

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT COUNT(*) FROM sessions`)).WillReturnCloseError(nil)
}
