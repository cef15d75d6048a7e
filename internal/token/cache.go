package token

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"central-portal/internal/domain"
)

// Cache persists the bearer token across process restarts. Load returns
// nil without error when nothing has been cached yet.
type Cache interface {
	Load() (*domain.CachedToken, error)
	Save(tok *domain.CachedToken) error
}

// FileCache stores the token as a small JSON document on disk. The file
// is overwritten wholesale on every save, never patched.
type FileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache creates a file-backed token cache at the given path
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the cached token from disk
func (c *FileCache) Load() (*domain.CachedToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token cache: %w", err)
	}

	var tok domain.CachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token cache: %w", err)
	}
	return &tok, nil
}

// Save writes the token to disk, replacing any previous document. The
// file is created owner-readable only since it holds a live credential.
func (c *FileCache) Save(tok *domain.CachedToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token cache: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// MemoryCache keeps the token in process memory only. Used by tests and
// by deployments that prefer a cold exchange on every restart.
type MemoryCache struct {
	mu  sync.Mutex
	tok *domain.CachedToken
}

// NewMemoryCache creates an empty in-memory token cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Load returns the stored token, nil when empty
func (c *MemoryCache) Load() (*domain.CachedToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok == nil {
		return nil, nil
	}
	cp := *c.tok
	return &cp, nil
}

// Save replaces the stored token
func (c *MemoryCache) Save(tok *domain.CachedToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *tok
	c.tok = &cp
	return nil
}
