// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the central-portal application.
package testutil

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"central-portal/internal/domain"
)

// MockSessionStore implements domain.SessionStore for testing
type MockSessionStore struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc            func(ctx context.Context) (*domain.Session, error)
	ValidateAndExtendFunc func(ctx context.Context, id string) (bool, error)
	GetFunc               func(ctx context.Context, id string) (*domain.Session, error)
	DestroyFunc           func(ctx context.Context, id string) error
	DeleteExpiredFunc     func(ctx context.Context) (int64, error)
	CountFunc             func(ctx context.Context) (int, error)

	// In-memory storage for simple tests
	Sessions map[string]*domain.Session
}

// NewMockSessionStore creates a new MockSessionStore with initialized maps
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionStore) Create(ctx context.Context) (*domain.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Sessions == nil {
		m.Sessions = make(map[string]*domain.Session)
	}

	session := NewTestSession()
	m.Sessions[session.ID] = session
	return session, nil
}

func (m *MockSessionStore) ValidateAndExtend(ctx context.Context, id string) (bool, error) {
	if m.ValidateAndExtendFunc != nil {
		return m.ValidateAndExtendFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return false, nil
	}
	if session.Expired(time.Now()) {
		delete(m.Sessions, id)
		return false, nil
	}
	session.ExpiresAt = time.Now().Add(domain.SessionTTL)
	return true, nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.Sessions[id]; ok {
		return session, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionStore) Destroy(ctx context.Context, id string) error {
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, id)
	return nil
}

func (m *MockSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := time.Now()
	for id, session := range m.Sessions {
		if session.Expired(now) {
			delete(m.Sessions, id)
			count++
		}
	}
	return count, nil
}

func (m *MockSessionStore) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Sessions), nil
}

// MockTokenManager stands in for the token manager wherever a bearer
// token source is needed
type MockTokenManager struct {
	mu sync.Mutex

	// Function overrides
	TokenFunc   func(ctx context.Context) (string, error)
	RefreshFunc func(ctx context.Context, force bool) (string, error)

	// Call tracking
	TokenCalls   int
	RefreshCalls int
}

func (m *MockTokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.TokenCalls++
	m.mu.Unlock()
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx)
	}
	return "test-token", nil
}

func (m *MockTokenManager) Refresh(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	m.RefreshCalls++
	m.mu.Unlock()
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, force)
	}
	return "refreshed-token", nil
}

// VendorCall records one request made through a MockVendorAPI
type VendorCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// MockVendorAPI implements the vendor client surface for testing
type MockVendorAPI struct {
	mu sync.Mutex

	// Function overrides
	GetFunc    func(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	PostFunc   func(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
	PutFunc    func(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
	DeleteFunc func(ctx context.Context, path string, query url.Values) (json.RawMessage, error)

	// Call tracking
	Calls []VendorCall
}

// NewMockVendorAPI creates a new MockVendorAPI
func NewMockVendorAPI() *MockVendorAPI {
	return &MockVendorAPI{
		Calls: make([]VendorCall, 0),
	}
}

func (m *MockVendorAPI) record(call VendorCall) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockVendorAPI) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	m.record(VendorCall{Method: "GET", Path: path, Query: query})
	if m.GetFunc != nil {
		return m.GetFunc(ctx, path, query)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockVendorAPI) Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	m.record(VendorCall{Method: "POST", Path: path, Query: query, Body: body})
	if m.PostFunc != nil {
		return m.PostFunc(ctx, path, query, body)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockVendorAPI) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	m.record(VendorCall{Method: "PUT", Path: path, Query: query, Body: body})
	if m.PutFunc != nil {
		return m.PutFunc(ctx, path, query, body)
	}
	return json.RawMessage(`{}`), nil
}

func (m *MockVendorAPI) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	m.record(VendorCall{Method: "DELETE", Path: path, Query: query})
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, path, query)
	}
	return json.RawMessage(`{}`), nil
}

// CallPaths returns the paths of all recorded calls, in order
func (m *MockVendorAPI) CallPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, len(m.Calls))
	for i, call := range m.Calls {
		paths[i] = call.Path
	}
	return paths
}

// Reset clears all recorded calls
func (m *MockVendorAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]VendorCall, 0)
}
