package domain

import "time"

// TokenExpiryBuffer is the safety margin applied before a token's real
// expiry. A token within this window of expiring is treated as expired
// so it is never presented to the vendor API moments before it dies.
const TokenExpiryBuffer = 300 * time.Second

// CachedToken is the persisted form of a bearer token obtained through
// the OAuth2 client-credentials exchange. Timestamps are seconds since
// epoch, matching the on-disk cache document.
type CachedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	CachedAt    int64  `json:"cached_at"`
}

// Stale reports whether the token must not be used at the given instant,
// applying the expiry buffer. A nil or empty token is always stale.
func (t *CachedToken) Stale(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	return now.Unix() >= t.ExpiresAt-int64(TokenExpiryBuffer.Seconds())
}
