//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"central-portal/internal/domain"
)

// Response shapes mirrored from the handler package
type LoginResponse struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	Created int64 `json:"created"`
	Expires int64 `json:"expires"`
}

type DeviceListResponse struct {
	Items []domain.Device `json:"items"`
}

type ItemsResponse struct {
	Items []json.RawMessage `json:"items"`
}

// PortalClient wraps http.Client with session handling for one portal user
type PortalClient struct {
	*http.Client
	t         *testing.T
	sessionID string
}

// NewPortalClient creates a client with no session
func NewPortalClient(t *testing.T) *PortalClient {
	return &PortalClient{
		Client: &http.Client{Timeout: 30 * time.Second},
		t:      t,
	}
}

// do sends a request with the session header when one is held
func (pc *PortalClient) do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if pc.sessionID != "" {
		req.Header.Set("X-Session-ID", pc.sessionID)
	}

	return pc.Do(req)
}

// Login creates a session and stores the ID for later requests
func (pc *PortalClient) Login() (*LoginResponse, error) {
	resp, err := pc.do(http.MethodPost, "/api/auth/login", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	pc.sessionID = result.SessionID
	return &result, nil
}

// Logout destroys the current session
func (pc *PortalClient) Logout() error {
	resp, err := pc.do(http.MethodPost, "/api/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	pc.sessionID = ""
	return nil
}

// SessionInfo fetches the current session's timestamps
func (pc *PortalClient) SessionInfo() (*SessionResponse, error) {
	resp, err := pc.do(http.MethodGet, "/api/auth/session", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("session info failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return &result, nil
}

// ListDevices fetches the normalized inventory
func (pc *PortalClient) ListDevices() (*DeviceListResponse, error) {
	resp, err := pc.do(http.MethodGet, "/api/devices", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list devices failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result DeviceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode device list: %w", err)
	}
	return &result, nil
}

// ListSites fetches the site list through the proxy
func (pc *PortalClient) ListSites() (*ItemsResponse, error) {
	resp, err := pc.do(http.MethodGet, "/api/sites", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list sites failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode site list: %w", err)
	}
	return &result, nil
}

// RenameDevices submits a bulk rename and returns the per-item outcomes
func (pc *PortalClient) RenameDevices(items []domain.RenameItem) (*domain.BulkResult, error) {
	resp, err := pc.do(http.MethodPost, "/api/devices/rename", map[string]any{"items": items})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rename failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result domain.BulkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode bulk result: %w", err)
	}
	return &result, nil
}

// Get performs a raw GET with the session header and returns the response
func (pc *PortalClient) GetRaw(path string) (*http.Response, error) {
	return pc.do(http.MethodGet, path, nil)
}
