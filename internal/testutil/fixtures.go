package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"central-portal/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewTestSession creates a test session with sensible defaults
// Pass options to override specific fields
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	o := &SessionOptions{
		ID:        nextID("session"),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.ExpiresAt.IsZero() {
		o.ExpiresAt = o.CreatedAt.Add(domain.SessionTTL)
	}

	return &domain.Session{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		ExpiresAt: o.ExpiresAt,
	}
}

// Session option functions

// WithSessionID sets the session ID
func WithSessionID(id string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ID = id
	}
}

// WithSessionCreatedAt sets the session creation time
func WithSessionCreatedAt(t time.Time) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.CreatedAt = t
	}
}

// WithExpiresAt sets the session expiration time
func WithExpiresAt(t time.Time) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ExpiresAt = t
	}
}

// WithExpired creates an already-expired session
func WithExpired() func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ExpiresAt = time.Now().Add(-1 * time.Hour)
	}
}

// TokenOptions allows customizing cached-token fixture creation
type TokenOptions struct {
	AccessToken string
	ExpiresAt   int64
	CachedAt    int64
}

// NewTestToken creates a cached bearer token fixture, fresh by default
func NewTestToken(opts ...func(*TokenOptions)) *domain.CachedToken {
	now := time.Now().Unix()
	o := &TokenOptions{
		AccessToken: nextID("token"),
		ExpiresAt:   now + 7200,
		CachedAt:    now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.CachedToken{
		AccessToken: o.AccessToken,
		ExpiresAt:   o.ExpiresAt,
		CachedAt:    o.CachedAt,
	}
}

// Token option functions

// WithAccessToken sets the bearer token value
func WithAccessToken(token string) func(*TokenOptions) {
	return func(o *TokenOptions) {
		o.AccessToken = token
	}
}

// WithTokenExpiresAt sets the token expiry as a Unix timestamp
func WithTokenExpiresAt(expiresAt int64) func(*TokenOptions) {
	return func(o *TokenOptions) {
		o.ExpiresAt = expiresAt
	}
}

// WithStaleToken creates a token already inside the refresh buffer
func WithStaleToken() func(*TokenOptions) {
	return func(o *TokenOptions) {
		o.ExpiresAt = time.Now().Unix() - 60
	}
}

// DeviceOptions allows customizing device fixture creation
type DeviceOptions struct {
	Serial     string
	Name       string
	DeviceType string
	Status     string
	Group      string
}

// NewTestDevice creates a test device with sensible defaults
func NewTestDevice(opts ...func(*DeviceOptions)) domain.Device {
	o := &DeviceOptions{
		Serial:     nextID("serial"),
		DeviceType: domain.DeviceTypeAP,
		Status:     "Up",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Name == "" {
		o.Name = "ap-" + o.Serial
	}

	return domain.Device{
		Serial:     o.Serial,
		Name:       o.Name,
		DeviceType: o.DeviceType,
		Status:     o.Status,
		Group:      o.Group,
	}
}

// Device option functions

// WithSerial sets the device serial
func WithSerial(serial string) func(*DeviceOptions) {
	return func(o *DeviceOptions) {
		o.Serial = serial
	}
}

// WithDeviceName sets the device name
func WithDeviceName(name string) func(*DeviceOptions) {
	return func(o *DeviceOptions) {
		o.Name = name
	}
}

// WithDeviceType sets the device type
func WithDeviceType(deviceType string) func(*DeviceOptions) {
	return func(o *DeviceOptions) {
		o.DeviceType = deviceType
	}
}

// WithGroup sets the device group
func WithGroup(group string) func(*DeviceOptions) {
	return func(o *DeviceOptions) {
		o.Group = group
	}
}

// Batch creation helpers

// NewTestDevices creates multiple test devices
func NewTestDevices(count int) []domain.Device {
	devices := make([]domain.Device, count)
	for i := 0; i < count; i++ {
		devices[i] = NewTestDevice()
	}
	return devices
}

// ResetIDCounter resets the ID counter (useful for deterministic tests)
func ResetIDCounter() {
	idCounter.Store(0)
}
