package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoToken is returned by Store.Token when no token is persisted.
var ErrNoToken = errors.New("no session token")

// Store is a single persisted slot holding the bearer token.
type Store interface {
	// Token returns the persisted token or ErrNoToken.
	Token() (string, error)

	// SetToken overwrites the persisted token.
	SetToken(token string) error

	// Clear removes the persisted token. Clearing an empty store is not an error.
	Clear() error
}

// FileStore keeps the token in a file readable only by the current user.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

// Token reads the token file.
func (s *FileStore) Token() (string, error) {
	slurp, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(slurp))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetToken writes the token file atomically.
func (s *FileStore) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Clear deletes the token file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryStore keeps the token in memory. It is used by tests and by callers
// that must not touch the disk.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a MemoryStore, optionally seeded with a token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Token returns the held token or ErrNoToken.
func (s *MemoryStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// SetToken replaces the held token.
func (s *MemoryStore) SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear drops the held token.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
