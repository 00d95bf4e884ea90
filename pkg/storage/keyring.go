package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the identifier used for all convoflow credentials in
	// the system keyring.
	ServiceName = "convoflow"

	credentialIndexKey = "__convoflow_index__"
)

// ErrCredentialNotFound is returned when a credential_ref names a key the
// keyring does not hold.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore resolves named credentials referenced from flow
// documents, so secrets never live in the flow files themselves.
type CredentialStore interface {
	Set(key string, value string) error
	Get(key string) (string, error)
	Delete(key string) error
	// List returns all credential keys (not the values).
	List() ([]string, error)
}

// KeyringCredentialStore implements CredentialStore using the system
// keyring (Keychain on macOS, Credential Manager on Windows, Secret
// Service on Linux).
type KeyringCredentialStore struct {
	service string
}

// NewKeyringCredentialStore creates a keyring-backed credential store.
func NewKeyringCredentialStore() *KeyringCredentialStore {
	return &KeyringCredentialStore{service: ServiceName}
}

// Set stores a credential under the given key.
func (s *KeyringCredentialStore) Set(key string, value string) error {
	if key == "" {
		return fmt.Errorf("credential key cannot be empty")
	}

	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	// Index update failures are tolerable, the credential itself is stored.
	_ = s.addToIndex(key)
	return nil
}

// Get retrieves a credential by key.
func (s *KeyringCredentialStore) Get(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("credential key cannot be empty")
	}

	value, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
		}
		return "", fmt.Errorf("failed to retrieve credential: %w", err)
	}
	return value, nil
}

// Delete removes a credential by key.
func (s *KeyringCredentialStore) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("credential key cannot be empty")
	}

	if err := keyring.Delete(s.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	_ = s.removeFromIndex(key)
	return nil
}

// List returns all credential keys stored by convoflow. The index is kept
// as a special keyring entry since keyrings cannot enumerate.
func (s *KeyringCredentialStore) List() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, credentialIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve credential index: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(indexJSON), &keys); err != nil {
		return nil, fmt.Errorf("failed to parse credential index: %w", err)
	}
	return keys, nil
}

func (s *KeyringCredentialStore) addToIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return s.saveIndex(append(keys, key))
}

func (s *KeyringCredentialStore) removeFromIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	remaining := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			remaining = append(remaining, k)
		}
	}
	return s.saveIndex(remaining)
}

func (s *KeyringCredentialStore) saveIndex(keys []string) error {
	indexJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal credential index: %w", err)
	}
	if err := keyring.Set(s.service, credentialIndexKey, string(indexJSON)); err != nil {
		return fmt.Errorf("failed to save credential index: %w", err)
	}
	return nil
}
