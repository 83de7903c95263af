// Package credentials resolves mailbox credentials from an explicitly chosen source.
//
// The HTTP server always uses the credentials in the request body. Only the
// one-shot CLI reads operator credentials, and only from the source it was
// configured with: environment (optionally a .env file) or the system keyring.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

// Environment variable names read by the env source
const (
	EnvAddress  = "EMAIL_ADDRESS"
	EnvPassword = "EMAIL_PASSWORD"
)

// Keyring item keys
const (
	KeyAddress  = "email_address"
	KeyPassword = "email_password"
)

// Source produces credentials
type Source interface {
	Resolve(ctx context.Context) (core.Credentials, error)
}

// Static returns fixed credentials. The HTTP handler resolves request bodies through it.
type Static core.Credentials

// Resolve returns the wrapped credentials after validation
func (s Static) Resolve(context.Context) (core.Credentials, error) {
	creds := core.Credentials(s)
	if err := creds.Validate(); err != nil {
		return core.Credentials{}, err
	}
	return creds, nil
}

// EnvSource reads EMAIL_ADDRESS and EMAIL_PASSWORD. Values in the process
// environment win over values in the env file.
type EnvSource struct {
	EnvFile string
	lookup  func(string) (string, bool)
}

// NewEnvSource creates an env source reading envFile when it exists
func NewEnvSource(envFile string) *EnvSource {
	return &EnvSource{EnvFile: envFile, lookup: os.LookupEnv}
}

// Resolve reads the credentials
func (s *EnvSource) Resolve(context.Context) (core.Credentials, error) {
	values := map[string]string{}
	if s.EnvFile != "" {
		fileValues, err := godotenv.Read(s.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return core.Credentials{}, fmt.Errorf("failed to read env file %s: %w", s.EnvFile, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, key := range []string{EnvAddress, EnvPassword} {
		if v, ok := s.lookup(key); ok && v != "" {
			values[key] = v
		}
	}

	creds := core.Credentials{Address: values[EnvAddress], Secret: values[EnvPassword]}
	if err := creds.Validate(); err != nil {
		return core.Credentials{}, fmt.Errorf("%s and %s must be set: %w", EnvAddress, EnvPassword, err)
	}
	return creds, nil
}

// KeyringSource reads credentials stored in the system keyring
type KeyringSource struct {
	ring keyring.Keyring
}

// NewKeyringSource wraps an open keyring
func NewKeyringSource(ring keyring.Keyring) *KeyringSource {
	return &KeyringSource{ring: ring}
}

// OpenKeyring opens the system keyring for the configured service, falling
// back to an encrypted file store
func OpenKeyring(cfg config.CredentialsConfig, filePassword string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: cfg.KeyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  cfg.KeyringDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(filePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Resolve reads the address and password items
func (s *KeyringSource) Resolve(context.Context) (core.Credentials, error) {
	address, err := s.ring.Get(KeyAddress)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("getting credential %q: %w", KeyAddress, err)
	}
	password, err := s.ring.Get(KeyPassword)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("getting credential %q: %w", KeyPassword, err)
	}

	creds := core.Credentials{Address: string(address.Data), Secret: string(password.Data)}
	if err := creds.Validate(); err != nil {
		return core.Credentials{}, err
	}
	return creds, nil
}

// Store saves credentials in the keyring
func (s *KeyringSource) Store(creds core.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	for key, value := range map[string]string{KeyAddress: creds.Address, KeyPassword: creds.Secret} {
		if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
			return fmt.Errorf("setting credential %q: %w", key, err)
		}
	}
	return nil
}

// FromConfig builds the source named by credentials.source
func FromConfig(cfg config.CredentialsConfig, keyringPassword string) (Source, error) {
	switch cfg.Source {
	case "env", "":
		return NewEnvSource(cfg.EnvFile), nil
	case "keyring":
		ring, err := OpenKeyring(cfg, keyringPassword)
		if err != nil {
			return nil, err
		}
		return NewKeyringSource(ring), nil
	default:
		return nil, fmt.Errorf("unsupported credentials source: %s", cfg.Source)
	}
}
