package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"inboxsweep/internal/config"
	"inboxsweep/internal/secrets"
)

func loadConfig(opts *rootOptions) (config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	if cfg.Auth.Password != "" || !cfg.Auth.Keyring || cfg.Auth.Username == "" {
		return cfg, nil
	}

	password, err := secrets.NewStore(cfg.Auth.KeyringBackend).Password(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return cfg, nil
		}
		return cfg, err
	}

	cfg.Auth.Password = password
	cfg.Auth.PasswordSource = "keyring"
	return cfg, nil
}
