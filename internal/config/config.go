package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PasswordEnv holds the app password used for both IMAP and SMTP.
const PasswordEnv = "EMAIL_APP_PASSWORD" //nolint:gosec // env var name, not a credential

const (
	ExpungeCumulative = "cumulative"
	ExpungePerFolder  = "per-folder"
)

var ErrMissingCredential = fmt.Errorf("credential missing: set the %s environment variable", PasswordEnv)

type Config struct {
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	SMTP    SMTPConfig    `mapstructure:"smtp" yaml:"smtp"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Cleanup CleanupConfig `mapstructure:"cleanup" yaml:"cleanup"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type SMTPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	// Keyring enables the OS keyring as a fallback when PasswordEnv is unset.
	Keyring        bool   `mapstructure:"keyring" yaml:"keyring"`
	KeyringBackend string `mapstructure:"keyring_backend" yaml:"keyring_backend"`
	PasswordSource string `mapstructure:"-" yaml:"-"`
}

type CleanupConfig struct {
	ThresholdDays int      `mapstructure:"threshold_days" yaml:"threshold_days"`
	LogFile       string   `mapstructure:"log_file" yaml:"log_file"`
	Senders       []string `mapstructure:"senders" yaml:"senders"`
	Folders       []string `mapstructure:"folders" yaml:"folders"`
	ExpungePolicy string   `mapstructure:"expunge_policy" yaml:"expunge_policy"`
}

type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Subject string `mapstructure:"subject" yaml:"subject"`
	// To defaults to the account address.
	To string `mapstructure:"to" yaml:"to,omitempty"`
}

// DefaultSenders is the sender keyword list the tool ships with.
var DefaultSenders = []string{
	"aliexpress", "claro", "udemy", "netflix", "cruzeiro do sul", "amazon", "apple",
	"letterboxd", "ebay", "olx", "appbarber", "linkedin", "nubank", "spotify", "ceo",
	"senai", "vagas.com", "ciee", "catho", "youversion", "viotti", "infojobs", "discord",
	"quora", "trello", "disqus", "abelssoft", "velox", "comic boom",
}

func DefaultConfig() Config {
	return Config{
		IMAP: IMAPConfig{
			Host:     "imap.gmail.com",
			Port:     993,
			TLS:      true,
			StartTLS: false,
		},
		SMTP: SMTPConfig{
			Host:     "smtp.gmail.com",
			Port:     587,
			TLS:      false,
			StartTLS: true,
		},
		Auth: AuthConfig{
			KeyringBackend: "auto",
		},
		Cleanup: CleanupConfig{
			ThresholdDays: 30,
			LogFile:       "email_cleanup_log.txt",
			Senders:       append([]string(nil), DefaultSenders...),
			Folders:       []string{"INBOX", "[Gmail]/Spam", "[Gmail]/Trash"},
			ExpungePolicy: ExpungeCumulative,
		},
		Report: ReportConfig{
			Enabled: true,
			Subject: "Email cleanup report",
		},
	}
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path (the default location when empty),
// applies INBOXSWEEP_* overrides and binds the password to PasswordEnv.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return cfg, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("INBOXSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("auth.password", PasswordEnv); err != nil {
		return cfg, err
	}

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.Cleanup.Senders = NormalizeSenders(cfg.Cleanup.Senders)
	if cfg.Auth.Password != "" {
		cfg.Auth.PasswordSource = "env"
	}

	return cfg, nil
}

// Save writes cfg as YAML to path (the default location when empty). The
// password is never written.
func Save(path string, cfg Config) (string, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	cfg.Auth.Password = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func Redact(cfg Config) Config {
	masked := cfg
	if masked.Auth.Password != "" {
		masked.Auth.Password = "****"
	}
	return masked
}

// NormalizeSenders lowercases and trims keywords, dropping empty and
// duplicate entries while keeping the original order.
func NormalizeSenders(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("imap.host", cfg.IMAP.Host)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.starttls", cfg.IMAP.StartTLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)

	v.SetDefault("smtp.host", cfg.SMTP.Host)
	v.SetDefault("smtp.port", cfg.SMTP.Port)
	v.SetDefault("smtp.tls", cfg.SMTP.TLS)
	v.SetDefault("smtp.starttls", cfg.SMTP.StartTLS)
	v.SetDefault("smtp.insecure_skip_verify", cfg.SMTP.InsecureSkipVerify)

	v.SetDefault("auth.username", cfg.Auth.Username)
	v.SetDefault("auth.keyring", cfg.Auth.Keyring)
	v.SetDefault("auth.keyring_backend", cfg.Auth.KeyringBackend)

	v.SetDefault("cleanup.threshold_days", cfg.Cleanup.ThresholdDays)
	v.SetDefault("cleanup.log_file", cfg.Cleanup.LogFile)
	v.SetDefault("cleanup.senders", cfg.Cleanup.Senders)
	v.SetDefault("cleanup.folders", cfg.Cleanup.Folders)
	v.SetDefault("cleanup.expunge_policy", cfg.Cleanup.ExpungePolicy)

	v.SetDefault("report.enabled", cfg.Report.Enabled)
	v.SetDefault("report.subject", cfg.Report.Subject)
	v.SetDefault("report.to", cfg.Report.To)
}

// ValidateCredential is the fatal precondition checked before any network
// action.
func ValidateCredential(cfg Config) error {
	if cfg.Auth.Password == "" {
		return ErrMissingCredential
	}
	return nil
}

func Validate(cfg Config) error {
	if err := ValidateCredential(cfg); err != nil {
		return err
	}
	if err := ValidateIMAP(cfg); err != nil {
		return err
	}
	if err := ValidateCleanup(cfg); err != nil {
		return err
	}
	if cfg.Report.Enabled {
		if err := ValidateSMTP(cfg); err != nil {
			return err
		}
	}
	return nil
}

func ValidateIMAP(cfg Config) error {
	if cfg.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	return nil
}

func ValidateSMTP(cfg Config) error {
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	return nil
}

func ValidateCleanup(cfg Config) error {
	if cfg.Cleanup.ThresholdDays < 0 {
		return fmt.Errorf("cleanup.threshold_days must not be negative, got %d", cfg.Cleanup.ThresholdDays)
	}
	switch cfg.Cleanup.ExpungePolicy {
	case "", ExpungeCumulative, ExpungePerFolder:
	default:
		return fmt.Errorf("cleanup.expunge_policy must be %q or %q, got %q",
			ExpungeCumulative, ExpungePerFolder, cfg.Cleanup.ExpungePolicy)
	}
	return nil
}

// ReportRecipient is where the cleanup report is sent.
func ReportRecipient(cfg Config) string {
	if cfg.Report.To != "" {
		return cfg.Report.To
	}
	return cfg.Auth.Username
}
