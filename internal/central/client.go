package central

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"central-portal/internal/observability"
)

// requestTimeout bounds a single proxied call to the vendor API.
const requestTimeout = 30 * time.Second

// maxAuthRetries is how many times a vendor 401 triggers a forced token
// refresh and a repeat of the request. Exactly one, never a loop.
const maxAuthRetries = 1

// TokenSource supplies bearer tokens for outbound calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context, force bool) (string, error)
}

// Client performs the proxied HTTP calls to the vendor API, attaching a
// bearer token sourced from the token manager before every call. It is a
// pass-through proxy: no caching, no batching, no retries beyond the
// single 401-triggered one.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a vendor API client
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Get performs a GET request against the vendor API
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post performs a POST request against the vendor API
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, query, body)
}

// Put performs a PUT request against the vendor API
func (c *Client) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, query, body)
}

// Delete performs a DELETE request against the vendor API
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, query, nil)
}

// Do forwards one request to the vendor API with bearer injection. A 401
// answer forces one token refresh and one retry; every other failure is
// surfaced immediately as a typed error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	bearer, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, raw, err := c.send(ctx, method, path, query, payload, bearer)
	if err != nil {
		return nil, err
	}

	for attempt := 0; resp.StatusCode == http.StatusUnauthorized && attempt < maxAuthRetries; attempt++ {
		slog.Warn("vendor api rejected token, forcing refresh",
			slog.String("method", method),
			slog.String("path", path))

		bearer, err = c.tokens.Refresh(ctx, true)
		if err != nil {
			return nil, err
		}

		resp, raw, err = c.send(ctx, method, path, query, payload, bearer)
		if err != nil {
			return nil, err
		}
	}

	return decode(resp, raw)
}

// send performs one HTTP round trip and reads the full body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, bearer string) (*http.Response, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return nil, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}

	status := strconv.Itoa(resp.StatusCode)
	observability.UpstreamRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
	observability.UpstreamRequestsTotal.WithLabelValues(method, status).Inc()

	if resp.StatusCode >= 400 {
		slog.Error("vendor api error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(raw), 500)))
	}

	return resp, raw, nil
}

// decode maps the response onto the error taxonomy. Empty and
// unparseable 2xx bodies come back as an empty object; some vendor
// endpoints answer 200 with nothing.
func decode(resp *http.Response, raw []byte) (json.RawMessage, error) {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			RetryAfter: resp.Header.Get("Retry-After"),
			Body:       string(raw),
		}
	case resp.StatusCode >= 400:
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(trimmed) {
		slog.Warn("vendor api returned invalid json", slog.Int("bytes", len(trimmed)))
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(trimmed), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
