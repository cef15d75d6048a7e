package middleware

import (
	"context"
	"net/http"

	"central-portal/internal/domain"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

// SessionHeader carries the opaque session identifier on every request
// after login. The frontend never sees the vendor bearer token.
const SessionHeader = "X-Session-ID"

// Auth gates protected routes on a live session, sliding its expiry
// forward on every hit. A missing, unknown, or expired identifier all
// produce the same response, so a caller cannot probe which identifiers
// ever existed.
func Auth(sessions domain.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if sessionID == "" {
				http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}

			valid, err := sessions.ValidateAndExtend(r.Context(), sessionID)
			if err != nil {
				http.Error(w, `{"error":"Failed to validate session"}`, http.StatusInternalServerError)
				return
			}
			if !valid {
				http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
