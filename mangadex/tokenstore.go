package mangadex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists the refresh token between runs. Save("") forgets it.
type TokenStore interface {
	Load() (string, error)
	Save(refreshToken string) error
}

// FileTokenStore keeps the refresh token in a JSON file readable only by the
// current user.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

type storedToken struct {
	RefreshToken string `json:"refresh_token"`
}

// NewFileTokenStore returns a store backed by path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load returns the stored refresh token, or "" if none is stored.
func (s *FileTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	return st.RefreshToken, nil
}

// Save writes the refresh token, or removes the file when it is empty.
func (s *FileTokenStore) Save(refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refreshToken == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove token file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(storedToken{RefreshToken: refreshToken}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
