package handler

import (
	"errors"
	"net/http"

	"central-portal/internal/central"
	"central-portal/internal/observability"
	"central-portal/internal/token"
)

// writeVendorError translates the Central client's error taxonomy into
// the portal's HTTP answers. Vendor 4xx pass through with their status;
// anything network-shaped becomes a 502 so the frontend can distinguish
// "Central is down" from a portal bug.
func writeVendorError(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.FromContext(r.Context())

	var authErr *token.AuthError
	var rateErr *central.RateLimitError
	var upstreamErr *central.UpstreamError
	var transportErr *central.TransportError

	switch {
	case errors.As(err, &authErr):
		if authErr.Status > 0 {
			log.Warn("vendor rejected credentials", "status", authErr.Status)
			http.Error(w, `{"error":"Authentication failed"}`, http.StatusUnauthorized)
			return
		}
		log.Error("token endpoint unreachable", "error", authErr.Err)
		http.Error(w, `{"error":"Vendor API unreachable"}`, http.StatusBadGateway)

	case errors.As(err, &rateErr):
		log.Warn("vendor rate limit hit", "retry_after", rateErr.RetryAfter)
		if rateErr.RetryAfter != "" {
			w.Header().Set("Retry-After", rateErr.RetryAfter)
		}
		http.Error(w, `{"error":"Rate limit exceeded"}`, http.StatusTooManyRequests)

	case errors.As(err, &upstreamErr):
		log.Warn("vendor api error", "status", upstreamErr.Status)
		switch {
		case upstreamErr.Status == http.StatusUnauthorized:
			// A 401 that survived the forced token refresh means the
			// credentials themselves are no longer accepted.
			http.Error(w, `{"error":"Authentication failed"}`, http.StatusUnauthorized)
		case upstreamErr.Status >= 400 && upstreamErr.Status < 500:
			http.Error(w, `{"error":"Vendor API error"}`, upstreamErr.Status)
		default:
			http.Error(w, `{"error":"Vendor API error"}`, http.StatusBadGateway)
		}

	case errors.As(err, &transportErr):
		log.Error("vendor api unreachable", "error", transportErr.Err)
		http.Error(w, `{"error":"Vendor API unreachable"}`, http.StatusBadGateway)

	default:
		log.Error("request failed", "error", err)
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
	}
}
