package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/nalgeon/be"

	"github.com/mikey/email-tldr/internal/config"
	"github.com/mikey/email-tldr/internal/core"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestEnvSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	be.Err(t, os.WriteFile(path, []byte("EMAIL_ADDRESS=alice@example.com\nEMAIL_PASSWORD=app-secret\n"), 0o600), nil)

	s := &EnvSource{EnvFile: path, lookup: envFrom(nil)}
	creds, err := s.Resolve(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, creds, core.Credentials{Address: "alice@example.com", Secret: "app-secret"})
}

func TestEnvSourceProcessWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	be.Err(t, os.WriteFile(path, []byte("EMAIL_ADDRESS=file@example.com\nEMAIL_PASSWORD=file\n"), 0o600), nil)

	s := &EnvSource{EnvFile: path, lookup: envFrom(map[string]string{EnvAddress: "proc@example.com"})}
	creds, err := s.Resolve(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, creds.Address, "proc@example.com")
	be.Equal(t, creds.Secret, "file")
}

func TestEnvSourceMissing(t *testing.T) {
	s := &EnvSource{EnvFile: filepath.Join(t.TempDir(), "absent.env"), lookup: envFrom(nil)}
	_, err := s.Resolve(context.Background())
	be.Equal(t, core.KindOf(err), core.KindInvalidRequest)
}

func TestKeyringRoundTrip(t *testing.T) {
	s := NewKeyringSource(keyring.NewArrayKeyring(nil))
	want := core.Credentials{Address: "bob@example.com", Secret: "s3cret"}
	be.Err(t, s.Store(want), nil)

	got, err := s.Resolve(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, got, want)
}

func TestKeyringMissingItem(t *testing.T) {
	s := NewKeyringSource(keyring.NewArrayKeyring(nil))
	_, err := s.Resolve(context.Background())
	be.True(t, err != nil)
}

func TestStatic(t *testing.T) {
	_, err := Static{Address: "a@example.com"}.Resolve(context.Background())
	be.Equal(t, core.KindOf(err), core.KindInvalidRequest)
}

func TestFromConfig(t *testing.T) {
	src, err := FromConfig(config.CredentialsConfig{Source: "env", EnvFile: ".env"}, "")
	be.Err(t, err, nil)
	_, ok := src.(*EnvSource)
	be.True(t, ok)

	_, err = FromConfig(config.CredentialsConfig{Source: "vault"}, "")
	be.True(t, err != nil)
}
