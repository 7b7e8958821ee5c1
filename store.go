package main

import (
	"os"
	"strings"
)

// tokenStore persists the raw bearer token under a fixed file name, mirroring
// the browser's localStorage entry. It is the only durable state the client
// keeps; appointments and doctors are re-fetched on every view load.
type tokenStore struct {
	path string
}

func newTokenStore(path string) *tokenStore {
	return &tokenStore{path: path}
}

// Load returns the persisted token, or an empty string when none is stored.
func (s *tokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *tokenStore) Save(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear removes the persisted token. Missing files are not an error.
func (s *tokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
