// Package auth stores per-cluster session credentials. The system keychain
// is the primary backend; when it is disabled by configuration or unreachable
// on the machine, credentials go to a 0600 JSON file in the state directory.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"

	"github.com/spirehq/spire/internal/statefile"
	"github.com/spirehq/spire/internal/uri"
)

const (
	keyringService = "spire"
	fallbackFile   = "credentials.json"
)

// Credentials holds the session material for one root cluster.
type Credentials struct {
	User         string `json:"user"`
	SessionToken string `json:"session_token"`
	ExpiresAt    int64  `json:"expires_at"`
	DeviceID     string `json:"device_id,omitempty"`
}

// backend is where serialized credentials live, one entry per root cluster.
type backend interface {
	get(key string) ([]byte, error)
	set(key string, data []byte) error
	remove(key string) error
}

// Store dispatches credential operations to the selected backend.
type Store struct {
	backend backend
	file    *fileBackend // retained for MigrateToKeyring even when the keychain is active
}

// NewStore selects the credential backend. keyringEnabled comes from config;
// a probe write decides whether the keychain actually works here, since
// headless hosts and most containers have none.
func NewStore(dir string, keyringEnabled bool) *Store {
	file := &fileBackend{path: filepath.Join(dir, fallbackFile)}
	if keyringEnabled {
		if err := probeKeyring(); err == nil {
			return &Store{backend: keyringBackend{}, file: file}
		}
		fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n", file.path)
	}
	return &Store{backend: file, file: file}
}

func probeKeyring() error {
	const probeKey = keyringService + "::startup-check"
	if err := keyring.Set(keyringService, probeKey, "ok"); err != nil {
		return err
	}
	return keyring.Delete(keyringService, probeKey)
}

func credentialKey(rootClusterURI uri.URI) string {
	return keyringService + "::" + string(rootClusterURI)
}

// Load retrieves the credentials for a root cluster.
func (s *Store) Load(rootClusterURI uri.URI) (*Credentials, error) {
	data, err := s.backend.get(credentialKey(rootClusterURI))
	if err != nil {
		return nil, fmt.Errorf("auth: credentials for %s: %w", rootClusterURI, err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("auth: decode credentials for %s: %w", rootClusterURI, err)
	}
	return &creds, nil
}

// Save stores the credentials for a root cluster.
func (s *Store) Save(rootClusterURI uri.URI, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.backend.set(credentialKey(rootClusterURI), data)
}

// Delete removes the credentials for a root cluster.
func (s *Store) Delete(rootClusterURI uri.URI) error {
	return s.backend.remove(credentialKey(rootClusterURI))
}

// UsingKeyring reports whether credentials go to the system keychain.
func (s *Store) UsingKeyring() bool {
	_, ok := s.backend.(keyringBackend)
	return ok
}

// MigrateToKeyring moves every credential left in the fallback file into the
// keychain and removes the file. A no-op when the keychain is not in use or
// no fallback file exists.
func (s *Store) MigrateToKeyring() error {
	if !s.UsingKeyring() {
		return nil
	}
	all, err := s.file.readAll()
	if err != nil || len(all) == 0 {
		return nil
	}
	for key, raw := range all {
		if err := s.backend.set(key, raw); err != nil {
			return fmt.Errorf("auth: migrate %s: %w", key, err)
		}
	}
	return os.Remove(s.file.path)
}

// keyringBackend stores one keychain item per root cluster.
type keyringBackend struct{}

func (keyringBackend) get(key string) ([]byte, error) {
	v, err := keyring.Get(keyringService, key)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (keyringBackend) set(key string, data []byte) error {
	return keyring.Set(keyringService, key, string(data))
}

func (keyringBackend) remove(key string) error {
	return keyring.Delete(keyringService, key)
}

// fileBackend keeps every credential in one JSON object so each mutation can
// replace the whole file atomically, with the same write discipline as the
// workspace state file.
type fileBackend struct {
	path string
}

func (f *fileBackend) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (f *fileBackend) writeAll(all map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return statefile.WriteFileAtomic(f.path, data, 0600)
}

func (f *fileBackend) get(key string) ([]byte, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	raw, ok := all[key]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return raw, nil
}

func (f *fileBackend) set(key string, data []byte) error {
	all, err := f.readAll()
	if err != nil {
		return err
	}
	all[key] = data
	return f.writeAll(all)
}

func (f *fileBackend) remove(key string) error {
	all, err := f.readAll()
	if err != nil {
		return err
	}
	delete(all, key)
	return f.writeAll(all)
}
