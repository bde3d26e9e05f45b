// Package storage persists small key-value entries (settings overrides and the
// conversation log) in a single JSON state file.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Well-known keys
const (
	KeyAPIKey       = "api_key"
	KeyProvider     = "provider"
	KeyModel        = "model"
	KeySystemPrompt = "system_prompt"
	KeyConversation = "conversation"
)

// SettingKeys lists the keys that can be set from the command line.
var SettingKeys = []string{KeyAPIKey, KeyProvider, KeyModel, KeySystemPrompt}

// Storage is a JSON-file-backed key-value store.
// Every mutation rewrites the whole file.
type Storage struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// Open loads the state file at path. A missing file yields an empty store.
func Open(path string) (*Storage, error) {
	s := &Storage{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: failed to read state file: %v", ErrFileOperation, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse state file %s: %v", ErrInvalidData, path, err)
	}
	if s.data == nil {
		s.data = make(map[string]json.RawMessage)
	}

	return s, nil
}

// Path returns the state file location.
func (s *Storage) Path() string {
	return s.path
}

// Get decodes the value stored under key into v.
// It reports false when the key is absent.
func (s *Storage) Get(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%w: key %s: %v", ErrInvalidData, key, err)
	}
	return true, nil
}

// Set stores v under key and writes the state file.
// The in-memory value is kept even if the write fails.
func (s *Storage) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: key %s: %v", ErrInvalidData, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return s.flush()
}

// Remove deletes key and writes the state file.
func (s *Storage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// Keys returns the stored keys in sorted order.
func (s *Storage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// flush writes the state file atomically. Callers hold s.mu.
func (s *Storage) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create state directory: %v", ErrFileOperation, err)
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to serialize state: %v", ErrInvalidData, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %v", ErrFileOperation, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write state file: %v", ErrFileOperation, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write state file: %v", ErrFileOperation, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to set state file permissions: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace state file: %v", ErrFileOperation, err)
	}

	return nil
}
