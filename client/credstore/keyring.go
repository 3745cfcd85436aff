package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringBackend stores credentials in the OS keychain (Keychain on macOS,
// Secret Service on Linux, Credential Manager on Windows).
type keyringBackend struct {
	service string
}

// newKeyringBackend probes the keychain with a write/delete cycle; an error
// means the platform has no usable secure medium and the caller should fall
// back.
func newKeyringBackend(service string) (*keyringBackend, error) {
	const probeKey = "availability_probe"
	if err := keyring.Set(service, probeKey, "ok"); err != nil {
		return nil, fmt.Errorf("keychain unavailable: %w", err)
	}
	_ = keyring.Delete(service, probeKey)
	return &keyringBackend{service: service}, nil
}

func (b *keyringBackend) Set(key, value string) error {
	return keyring.Set(b.service, key, value)
}

func (b *keyringBackend) Get(key string) (string, error) {
	v, err := keyring.Get(b.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errNotFound
	}
	return v, err
}

func (b *keyringBackend) Delete(key string) error {
	err := keyring.Delete(b.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return errNotFound
	}
	return err
}
