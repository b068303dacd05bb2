package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "airbrb-notify"

// lastIdentityKey holds the identity of the most recent login so the
// session can be restored on the next start.
const lastIdentityKey = "last-identity"

// ErrNotFound is returned when no credential exists for a key.
var ErrNotFound = errors.New("credential not found")

// Opener opens the keyring backing a Vault. Tests substitute an in-memory
// keyring.
type Opener func() (keyring.Keyring, error)

// Vault stores session tokens per identity in the system keyring.
type Vault struct {
	open Opener
}

// NewVault creates a Vault backed by the system keyring.
func NewVault() *Vault {
	return &Vault{open: openKeyring}
}

// NewVaultWith creates a Vault backed by the keyring open returns.
func NewVaultWith(open Opener) *Vault {
	return &Vault{open: open}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/airbrb-notify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("airbrb-notify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func tokenKey(identity string) string {
	return "token:" + identity
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	ring, err := v.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key string, value string) error {
	ring, err := v.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. A missing key is not an error.
func (v *Vault) Delete(key string) error {
	ring, err := v.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// SaveSession stores token for identity and remembers identity as the
// last login.
func (v *Vault) SaveSession(identity, token string) error {
	if err := v.Set(tokenKey(identity), token); err != nil {
		return err
	}
	return v.Set(lastIdentityKey, identity)
}

// LoadSession returns the identity and token of the last login. It
// returns ErrNotFound when there is no stored session.
func (v *Vault) LoadSession() (identity, token string, err error) {
	identity, err = v.Get(lastIdentityKey)
	if err != nil {
		return "", "", err
	}
	token, err = v.Get(tokenKey(identity))
	if err != nil {
		return "", "", err
	}
	return identity, token, nil
}

// ClearSession forgets the token of identity and the last-login marker.
// The identity's acknowledgement watermark lives elsewhere and survives.
func (v *Vault) ClearSession(identity string) error {
	if err := v.Delete(tokenKey(identity)); err != nil {
		return err
	}
	return v.Delete(lastIdentityKey)
}
