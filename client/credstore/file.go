package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileBackend persists credentials as a JSON file in the user's config
// directory. It is the fallback medium for platforms without a keychain;
// file permissions are the only protection it offers.
type fileBackend struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

func newFileBackend(service string) (*fileBackend, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	path := filepath.Join(dir, service, "credentials.json")
	b := &fileBackend{path: path, values: make(map[string]string)}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

// newFileBackendAt is the test seam for a fixed path.
func newFileBackendAt(path string) (*fileBackend, error) {
	b := &fileBackend{path: path, values: make(map[string]string)}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *fileBackend) load() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read credential file: %w", err)
	}
	if err := json.Unmarshal(data, &b.values); err != nil {
		// A corrupt file is treated as empty rather than bricking the
		// client; the next write replaces it.
		b.values = make(map[string]string)
	}
	return nil
}

func (b *fileBackend) flush() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	data, err := json.Marshal(b.values)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (b *fileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return b.flush()
}

func (b *fileBackend) Get(key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (b *fileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[key]; !ok {
		return errNotFound
	}
	delete(b.values, key)
	return b.flush()
}
