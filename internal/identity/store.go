package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credentials is what survives between CLI invocations.
type Credentials struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// CredentialStore persists the signed-in principal.
type CredentialStore interface {
	// Load returns nil, nil when nothing is stored.
	Load() (*Credentials, error)
	Save(c *Credentials) error
	Clear() error
}

// FileCredentialStore keeps credentials in a single JSON file readable only by the owner.
type FileCredentialStore struct {
	Path string
}

// NewFileCredentialStore returns a store backed by path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{Path: path}
}

// Load implements CredentialStore.
func (s *FileCredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if c.UID == "" || c.RefreshToken == "" {
		return nil, fmt.Errorf("credentials file %s is incomplete", s.Path)
	}
	return &c, nil
}

// Save implements CredentialStore.
func (s *FileCredentialStore) Save(c *Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Clear implements CredentialStore. Clearing an absent file is not an error.
func (s *FileCredentialStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
