package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"central-portal/internal/domain"
)

// TokenPeeker reports the cached token without forcing an exchange
type TokenPeeker interface {
	Peek() (*domain.CachedToken, bool)
}

// Health returns basic liveness plus whether the Central client came up
func Health(clientInitialized bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":                 "ok",
			"api_client_initialized": clientInitialized,
		})
	}
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Ready returns readiness check with dependencies
func Ready(tokens TokenPeeker, sessions domain.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Check dependencies in parallel
		tokenResult := make(chan HealthCheckResult, 1)
		sessionResult := make(chan HealthCheckResult, 1)

		go func() {
			tokenResult <- checkTokenCache(tokens)
		}()

		go func() {
			sessionResult <- checkSessionStore(ctx, sessions)
		}()

		tokenCheck := <-tokenResult
		sessionCheck := <-sessionResult

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks": map[string]HealthCheckResult{
				"token_cache":   tokenCheck,
				"session_store": sessionCheck,
			},
		}

		allHealthy := tokenCheck.Status == "up" && sessionCheck.Status == "up"

		if allHealthy {
			response["status"] = "ready"
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}

// checkTokenCache reports the cached bearer token state. An empty cache
// is still "up"; the next login fills it.
func checkTokenCache(tokens TokenPeeker) HealthCheckResult {
	start := time.Now()
	cached, ok := tokens.Peek()
	latency := time.Since(start)

	result := HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
		Metadata: map[string]interface{}{
			"cached": ok,
		},
	}

	if ok {
		result.Metadata["expires_at"] = cached.ExpiresAt
		result.Metadata["stale"] = cached.Stale(time.Now())
	}

	return result
}

// checkSessionStore verifies the session backend answers queries
func checkSessionStore(ctx context.Context, sessions domain.SessionStore) HealthCheckResult {
	start := time.Now()
	count, err := sessions.Count(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}

	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
		Metadata: map[string]interface{}{
			"active_sessions": count,
		},
	}
}
