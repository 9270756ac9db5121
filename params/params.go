// Package params provides a persistent key-value store backed by one
// file per key. It holds device state that must survive reboots, such
// as completed-training flags and version markers.
package params

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/victoralfred/gowritter/safepath"
)

// ErrParamNotFound indicates the requested key does not exist.
var ErrParamNotFound = errors.New("param not found")

// ErrInvalidKey indicates the key is not a valid param name.
var ErrInvalidKey = errors.New("invalid param key")

// keyPattern restricts param names to a safe character set so a key
// can never escape the store directory.
var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Store is a file-per-key parameter store.
type Store struct {
	safePath *safepath.SafePath
	mu       sync.RWMutex
}

// NewStore creates a store rooted at basePath. The directory must
// already exist.
func NewStore(basePath string) (*Store, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safepath for param store: %w", err)
	}
	return &Store{safePath: sp}, nil
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.safePath.ReadFile(key)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrParamNotFound, key)
	}
	return string(data), nil
}

// Has reports whether key exists.
func (s *Store) Has(key string) bool {
	if err := validateKey(key); err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, err := s.safePath.Exists(key)
	return err == nil && exists
}

// Put stores value under key, overwriting any existing value.
func (s *Store) Put(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.safePath.WriteFile(key, []byte(value), 0o644); err != nil {
		return fmt.Errorf("writing param %s: %w", key, err)
	}
	return nil
}

// PutIfUnset stores value under key only if the key does not exist or
// its current value is empty. Returns true if the value was written.
func (s *Store) PutIfUnset(key, value string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := s.safePath.ReadFile(key); err == nil && len(data) > 0 {
		return false, nil
	}

	if err := s.safePath.WriteFile(key, []byte(value), 0o644); err != nil {
		return false, fmt.Errorf("writing param %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.safePath.Exists(key)
	if err != nil || !exists {
		return nil
	}

	if err := s.safePath.Remove(key); err != nil {
		return fmt.Errorf("removing param %s: %w", key, err)
	}
	return nil
}

// SeedDefaults writes each default value only where the key is unset
// or empty. Existing values are never overwritten. Returns the keys
// that were written.
func (s *Store) SeedDefaults(defaults map[string]string) ([]string, error) {
	var written []string
	for key, value := range defaults {
		ok, err := s.PutIfUnset(key, value)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, key)
		}
	}
	return written, nil
}

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
