package secrets

import (
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStoreWithKeyring(keyring.NewArrayKeyring(nil))

	if err := store.SetPassword(" Me@Example.com ", "app-secret"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	got, err := store.Password("me@example.com")
	if err != nil {
		t.Fatalf("get password: %v", err)
	}
	if got != "app-secret" {
		t.Fatalf("expected stored password, got %q", got)
	}
}

func TestStoreMissingSecret(t *testing.T) {
	store := NewStoreWithKeyring(keyring.NewArrayKeyring(nil))

	if _, err := store.Password("nobody@example.com"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
	if _, err := store.Password(""); !errors.Is(err, errMissingUsername) {
		t.Fatalf("expected errMissingUsername, got %v", err)
	}
	if err := store.SetPassword("me@example.com", ""); !errors.Is(err, errMissingPassword) {
		t.Fatalf("expected errMissingPassword, got %v", err)
	}
}

func TestAllowedBackends(t *testing.T) {
	tests := []struct {
		backend string
		want    []keyring.BackendType
		wantErr bool
	}{
		{backend: "", want: nil},
		{backend: "AUTO", want: nil},
		{backend: "file", want: []keyring.BackendType{keyring.FileBackend}},
		{backend: "keychain", want: []keyring.BackendType{keyring.KeychainBackend}},
		{backend: "vault", wantErr: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.backend, func(t *testing.T) {
			got, err := allowedBackends(tc.backend)
			if tc.wantErr {
				if !errors.Is(err, errInvalidKeyringBackend) {
					t.Fatalf("expected invalid backend error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) || (len(got) == 1 && got[0] != tc.want[0]) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBackendSelectionOnLinux(t *testing.T) {
	if !shouldForceFileBackend("linux", "auto", "") {
		t.Fatalf("expected file backend without D-Bus")
	}
	if shouldForceFileBackend("darwin", "auto", "") {
		t.Fatalf("expected no forcing outside linux")
	}
	if !shouldUseKeyringTimeout("linux", "", "unix:path=/run/user/1000/bus") {
		t.Fatalf("expected timeout with D-Bus session")
	}
	if shouldUseKeyringTimeout("linux", "file", "unix:path=/run/user/1000/bus") {
		t.Fatalf("expected no timeout for explicit backend")
	}
}

func TestFileKeyringPasswordFunc(t *testing.T) {
	prompt := fileKeyringPasswordFuncFrom("", true, false)
	if got, err := prompt("unlock"); err != nil || got != "" {
		t.Fatalf("expected empty passphrase, got %q (%v)", got, err)
	}

	prompt = fileKeyringPasswordFuncFrom("", false, false)
	if _, err := prompt("unlock"); !errors.Is(err, errNoTTY) {
		t.Fatalf("expected errNoTTY, got %v", err)
	}
}

func TestOpenKeyringWithTimeout(t *testing.T) {
	orig := keyringOpenFunc
	t.Cleanup(func() { keyringOpenFunc = orig })

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	keyringOpenFunc = func(keyring.Config) (keyring.Keyring, error) {
		<-block
		return nil, nil
	}

	_, err := openKeyringWithTimeout(keyring.Config{}, 10*time.Millisecond)
	if !errors.Is(err, errKeyringTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
