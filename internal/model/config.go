package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigError describes an invalid or missing configuration field. It is
// returned before any network activity is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Config is the full client configuration for one sync run. It is built
// once at startup and passed explicitly into the components that need it;
// nothing below the CLI reads ambient process state.
type Config struct {
	// Host and Port locate the incoming mail server (POP3 or IMAP,
	// selected by port).
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// SMTPHost and SMTPPort locate the outgoing mail server.
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" yaml:"smtp_port"`

	Username string `mapstructure:"username" yaml:"username"`

	// Password may be empty, in which case the credential keyring is
	// consulted under the username.
	Password string `mapstructure:"password" yaml:"password"`

	// ArchiveRoot is the directory holding one folder per archived
	// message plus the hidden seen-UID ledger and tag database.
	ArchiveRoot string `mapstructure:"archive_root" yaml:"archive_root"`

	// SecurityProfile is one of "strict", "balanced", or "legacy".
	SecurityProfile string `mapstructure:"security_profile" yaml:"security_profile"`

	// MonitorIntervalSec is the delay between passes in monitor mode.
	MonitorIntervalSec int `mapstructure:"monitor_interval_sec" yaml:"monitor_interval_sec"`
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/mailclient/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailclient", "config.yaml")
}

func defaultArchiveRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "emails_offline")
	}
	return filepath.Join(home, "emails_offline")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with MAILCLIENT_ (e.g. MAILCLIENT_PASSWORD)
// override file values, so secrets can be kept out of the file entirely.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("mailclient")
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys to Unmarshal, so
	// bind every key explicitly; MAILCLIENT_<KEY> then overrides any field.
	for _, key := range []string{
		"host", "port", "smtp_host", "smtp_port",
		"username", "password", "archive_root",
		"security_profile", "monitor_interval_sec",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("port", 995)
	v.SetDefault("smtp_port", 465)
	v.SetDefault("security_profile", "balanced")
	v.SetDefault("monitor_interval_sec", 300)
	v.SetDefault("archive_root", defaultArchiveRoot())

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when every required field arrives
		// through the environment; Validate catches the rest.
		_, pathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that every field required for a sync run is present and
// well formed. It must pass before any network connection is opened.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return &ConfigError{Field: "host", Reason: "mail server host is required"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "port", Reason: fmt.Sprintf("invalid port %d", c.Port)}
	}
	if strings.TrimSpace(c.SMTPHost) == "" {
		return &ConfigError{Field: "smtp_host", Reason: "SMTP server host is required"}
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return &ConfigError{Field: "smtp_port", Reason: fmt.Sprintf("invalid port %d", c.SMTPPort)}
	}
	if strings.TrimSpace(c.Username) == "" {
		return &ConfigError{Field: "username", Reason: "username is required"}
	}
	if strings.TrimSpace(c.ArchiveRoot) == "" {
		return &ConfigError{Field: "archive_root", Reason: "archive root directory is required"}
	}
	switch c.SecurityProfile {
	case "strict", "balanced", "legacy":
	default:
		return &ConfigError{
			Field:  "security_profile",
			Reason: fmt.Sprintf("%q is not one of strict, balanced, legacy", c.SecurityProfile),
		}
	}
	if c.MonitorIntervalSec <= 0 {
		return &ConfigError{
			Field:  "monitor_interval_sec",
			Reason: fmt.Sprintf("interval must be positive, got %d", c.MonitorIntervalSec),
		}
	}
	return nil
}
