// Package store persists the device's session across application restarts.
//
// The store holds at most one session. Saving fully replaces the prior
// value, reading corrupt or missing data yields absence rather than an
// error, and clearing an already-empty store is a no-op.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pipersmart/internal/domain"
)

const sessionKey = "session"

// Storage is the durable key-value capability backing the token store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// TokenStore reads and writes the current session as a single logical unit.
type TokenStore struct {
	storage Storage
}

func NewTokenStore(storage Storage) *TokenStore {
	return &TokenStore{storage: storage}
}

// Save durably persists the session, replacing any prior one.
func (s *TokenStore) Save(session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Set(sessionKey, string(raw)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Read returns the most recently saved session. Missing, empty or
// unparseable stored data reads as absent, never as an error.
func (s *TokenStore) Read() (domain.Session, bool) {
	raw, ok, err := s.storage.Get(sessionKey)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return domain.Session{}, false
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return domain.Session{}, false
	}
	if session.Token == "" {
		return domain.Session{}, false
	}
	session.User.Role = domain.ParseRole(string(session.User.Role))
	return session, true
}

// Clear removes the stored session. Clearing an empty store succeeds.
func (s *TokenStore) Clear() error {
	if err := s.storage.Remove(sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// FileStorage keeps each key as a JSON-safe file under a directory,
// following the usual per-user config location.
type FileStorage struct {
	dir string
}

// NewFileStorage creates (if needed) and uses dir for persistence. An empty
// dir resolves to ~/.config/pipersmart.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "pipersmart")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(raw), true, nil
}

// Set writes through a temp file and rename so a crash mid-write never
// leaves a torn value behind.
func (f *FileStorage) Set(key, value string) error {
	tmp, err := os.CreateTemp(f.dir, key+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path(key))
}

func (f *FileStorage) Remove(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage is an in-process Storage for tests and previews.
type MemoryStorage struct {
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	delete(m.values, key)
	return nil
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
