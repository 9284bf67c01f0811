package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"inboxsweep/internal/config"
)

const keyringPasswordEnv = "INBOXSWEEP_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential

const (
	BackendAuto     = "auto"
	BackendKeychain = "keychain"
	BackendFile     = "file"
)

var (
	ErrSecretNotFound        = errors.New("secret not found")
	errMissingUsername       = errors.New("missing username")
	errMissingPassword       = errors.New("missing password")
	errNoTTY                 = errors.New("no TTY available for keyring file backend password prompt")
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errKeyringTimeout        = errors.New("keyring connection timed out")
	keyringOpenFunc          = keyring.Open
)

// keyringOpenTimeout bounds keyring.Open. On headless Linux, D-Bus
// SecretService can hang indefinitely if gnome-keyring is installed but not
// running.
const keyringOpenTimeout = 5 * time.Second

// Store keeps the app password in the OS keyring, keyed by account.
type Store struct {
	open func() (keyring.Keyring, error)
}

// NewStore opens keyrings with backend, one of auto, keychain or file.
func NewStore(backend string) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return openKeyring(backend) }}
}

// NewStoreWithKeyring wraps an already opened keyring.
func NewStoreWithKeyring(ring keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func (s *Store) SetPassword(username, password string) error {
	user := normalize(username)
	if user == "" {
		return errMissingUsername
	}
	if password == "" {
		return errMissingPassword
	}

	ring, err := s.open()
	if err != nil {
		return err
	}
	item := keyring.Item{Key: passwordKey(user), Data: []byte(password), Label: config.AppName}
	if err := ring.Set(item); err != nil {
		return wrapKeychainError(fmt.Errorf("store secret: %w", err))
	}
	return nil
}

func (s *Store) Password(username string) (string, error) {
	user := normalize(username)
	if user == "" {
		return "", errMissingUsername
	}

	ring, err := s.open()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(passwordKey(user))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrSecretNotFound
		}
		return "", wrapKeychainError(fmt.Errorf("read secret: %w", err))
	}
	return string(item.Data), nil
}

func allowedBackends(backend string) ([]keyring.BackendType, error) {
	switch normalize(backend) {
	case "", BackendAuto:
		return nil, nil
	case BackendKeychain:
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case BackendFile:
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w: %q (expected %s, %s, or %s)", errInvalidKeyringBackend, backend, BackendAuto, BackendKeychain, BackendFile)
	}
}

// wrapKeychainError adds unlock guidance for a locked macOS keychain.
func wrapKeychainError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "User interaction is not allowed") {
		return fmt.Errorf("%w\n\nYour macOS keychain is locked. To unlock it, run:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", err)
	}
	return err
}

func fileKeyringPasswordFuncFrom(password string, passwordSet bool, isTTY bool) keyring.PromptFunc {
	// Treat "set to empty string" as intentional; empty passphrase is valid.
	if passwordSet {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(_ string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
	}
}

func shouldForceFileBackend(goos, backend, dbusAddr string) bool {
	b := normalize(backend)
	return goos == "linux" && (b == "" || b == BackendAuto) && dbusAddr == ""
}

func shouldUseKeyringTimeout(goos, backend, dbusAddr string) bool {
	b := normalize(backend)
	return goos == "linux" && (b == "" || b == BackendAuto) && dbusAddr != ""
}

func openKeyring(backend string) (keyring.Keyring, error) {
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	backends, err := allowedBackends(backend)
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if shouldForceFileBackend(runtime.GOOS, backend, dbusAddr) {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	password, passwordSet := os.LookupEnv(keyringPasswordEnv)
	cfg := keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: false,
		AllowedBackends:          backends,
		FileDir:                  keyringDir,
		FilePasswordFunc:         fileKeyringPasswordFuncFrom(password, passwordSet, term.IsTerminal(int(os.Stdin.Fd()))),
	}

	if shouldUseKeyringTimeout(runtime.GOOS, backend, dbusAddr) {
		return openKeyringWithTimeout(cfg, keyringOpenTimeout)
	}

	ring, err := keyringOpenFunc(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

type keyringResult struct {
	ring keyring.Keyring
	err  error
}

func openKeyringWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	ch := make(chan keyringResult, 1)
	open := keyringOpenFunc

	go func() {
		ring, err := open(cfg)
		ch <- keyringResult{ring, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v (D-Bus SecretService may be unresponsive); "+
			"set auth.keyring_backend=file and %s=<password> to use encrypted file storage instead",
			errKeyringTimeout, timeout, keyringPasswordEnv)
	}
}

func passwordKey(username string) string {
	return fmt.Sprintf("auth:password:%s", username)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
