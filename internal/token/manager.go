package token

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"central-portal/internal/domain"
	"central-portal/internal/observability"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// exchangeTimeout bounds a single call to the OAuth2 token endpoint.
const exchangeTimeout = 10 * time.Second

// Config carries the client-credentials grant parameters
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	CustomerID   string
}

// Manager owns the bearer token lifecycle. It performs the OAuth2
// client-credentials exchange when the cached token is missing or inside
// the expiry buffer, and persists every fresh token so a process restart
// does not force an unnecessary re-exchange. All state changes happen
// under one lock, so concurrent callers observing a stale token wait for
// a single in-flight exchange instead of issuing their own.
type Manager struct {
	grant clientcredentials.Config
	cache Cache

	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	current *domain.CachedToken
	loaded  bool
}

// Option configures a Manager
type Option func(*Manager)

// WithClock substitutes the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithHTTPClient substitutes the HTTP client used for the exchange
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// NewManager creates a token manager backed by the given cache
func NewManager(cfg Config, cache Cache, opts ...Option) *Manager {
	grant := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	if cfg.CustomerID != "" {
		grant.EndpointParams = url.Values{"customer_id": {cfg.CustomerID}}
	}

	m := &Manager{
		grant:      grant,
		cache:      cache,
		httpClient: &http.Client{Timeout: exchangeTimeout},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a bearer token valid for at least the expiry buffer. A
// fresh cached token is returned as-is; a missing or stale one triggers
// exactly one exchange.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if !m.current.Stale(m.now()) {
		return m.current.AccessToken, nil
	}
	return m.exchangeLocked(ctx)
}

// Refresh performs the exchange unconditionally when force is set,
// otherwise it behaves like Token.
func (m *Manager) Refresh(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force {
		m.loadLocked()
		if !m.current.Stale(m.now()) {
			return m.current.AccessToken, nil
		}
	}
	return m.exchangeLocked(ctx)
}

// Peek reports the cached token without triggering an exchange
func (m *Manager) Peek() (*domain.CachedToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.current == nil {
		return nil, false
	}
	cp := *m.current
	return &cp, true
}

// loadLocked pulls the persisted token into memory once per process
func (m *Manager) loadLocked() {
	if m.loaded {
		return
	}
	m.loaded = true

	tok, err := m.cache.Load()
	if err != nil {
		slog.Warn("token cache unreadable", slog.String("error", err.Error()))
		return
	}
	if tok != nil {
		m.current = tok
		observability.TokenExpirySeconds.Set(float64(tok.ExpiresAt))
	}
}

// exchangeLocked performs the client-credentials grant. The caller holds
// the lock. On failure the previously cached token is left untouched.
func (m *Manager) exchangeLocked(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.grant.Token(ctx)
	if err != nil {
		observability.TokenRefreshesTotal.WithLabelValues("error").Inc()

		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			slog.Error("token exchange rejected",
				slog.Int("status", rErr.Response.StatusCode),
				slog.String("body", truncate(string(rErr.Body), 500)))
			return "", &AuthError{Status: rErr.Response.StatusCode, Body: string(rErr.Body), Err: err}
		}

		slog.Error("token endpoint unreachable", slog.String("error", err.Error()))
		return "", &AuthError{Err: err}
	}

	now := m.now()
	cached := &domain.CachedToken{
		AccessToken: tok.AccessToken,
		CachedAt:    now.Unix(),
	}
	if sec := expiresIn(tok); sec > 0 {
		cached.ExpiresAt = now.Unix() + sec
	} else {
		// No usable lifetime in the response; the token is stale from
		// the start and the next call re-exchanges.
		cached.ExpiresAt = now.Unix()
		slog.Warn("token response carried no expires_in")
	}

	m.current = cached
	if err := m.cache.Save(cached); err != nil {
		slog.Warn("token cache write failed", slog.String("error", err.Error()))
	}

	observability.TokenRefreshesTotal.WithLabelValues("success").Inc()
	observability.TokenExpirySeconds.Set(float64(cached.ExpiresAt))
	slog.Info("access token refreshed", slog.Int64("expires_at", cached.ExpiresAt))

	return cached.AccessToken, nil
}

// expiresIn extracts the expires_in seconds from the token response,
// whether the endpoint answered JSON or form-encoded.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
