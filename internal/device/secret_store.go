package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

// SecretStore keeps small per-installation values out of the config file
type SecretStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// FileSecretStore keeps secrets in a 0600 JSON object on disk
type FileSecretStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileSecretStore creates a file-backed secret store at path
func NewFileSecretStore(fs afero.Fs, path string) *FileSecretStore {
	return &FileSecretStore{fs: fs, path: path}
}

func (s *FileSecretStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileSecretStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	return nil
}

func (s *FileSecretStore) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return values, nil
}

// KeyringSecretStore keeps secrets in the OS keyring under one service name
type KeyringSecretStore struct {
	service string
}

// NewKeyringSecretStore creates a keyring-backed secret store
func NewKeyringSecretStore(service string) *KeyringSecretStore {
	return &KeyringSecretStore{service: service}
}

func (s *KeyringSecretStore) Get(_ context.Context, key string) (string, bool, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read keyring: %w", err)
	}
	return v, true, nil
}

func (s *KeyringSecretStore) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}
