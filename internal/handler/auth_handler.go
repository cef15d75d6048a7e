package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"central-portal/internal/domain"
	"central-portal/internal/middleware"
	"central-portal/internal/observability"
	"central-portal/internal/service"
	"central-portal/internal/token"
)

// AuthHandler handles session endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// LoginResponse carries the session identifier the frontend stores
type LoginResponse struct {
	SessionID string `json:"session_id"`
}

// SessionResponse reports the session lifetime as Unix seconds
type SessionResponse struct {
	Created int64 `json:"created"`
	Expires int64 `json:"expires"`
}

// Login proves the configured OAuth2 credentials against the vendor and
// opens a portal session. The request carries no body; the credentials
// live in server config, never in the browser.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, err := h.authService.Login(r.Context())
	if err != nil {
		var authErr *token.AuthError
		if errors.As(err, &authErr) {
			if authErr.Status > 0 {
				observability.FromContext(r.Context()).Warn("login rejected by token endpoint",
					"status", authErr.Status)
				http.Error(w, `{"error":"Authentication failed"}`, http.StatusUnauthorized)
				return
			}
			observability.FromContext(r.Context()).Error("token endpoint unreachable",
				"error", authErr.Err)
			http.Error(w, `{"error":"Vendor API unreachable"}`, http.StatusBadGateway)
			return
		}

		observability.FromContext(r.Context()).Error("login failed", "error", err)
		http.Error(w, `{"error":"Failed to create session"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{SessionID: session.ID})
}

// Logout destroys the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), sessionID); err != nil {
		http.Error(w, `{"error":"Failed to log out"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session reports when the caller's session was created and when it
// expires, so the frontend can warn before the sliding window closes.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	session, err := h.authService.SessionInfo(r.Context(), sessionID)
	if err != nil {
		// The middleware validated moments ago, but the session can be
		// destroyed or expire between the two lookups.
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
			return
		}
		http.Error(w, `{"error":"Failed to load session"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionResponse{
		Created: session.CreatedAt.Unix(),
		Expires: session.ExpiresAt.Unix(),
	})
}
