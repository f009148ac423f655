// Package config loads and saves the YAML configuration file and resolves
// credentials from flags, environment and the file, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/laget-events/internal/crypto"
)

// KeyEnv names the environment variable holding the passphrase for the
// encrypted password field.
const KeyEnv = "LAGET_CONFIG_KEY"

const (
	emailEnv    = "LAGET_EMAIL"
	passwordEnv = "LAGET_PASSWORD"
)

// Config is the on-disk configuration. Password and PasswordEncrypted are
// alternatives; when both are set the encrypted one wins.
type Config struct {
	Email             string `yaml:"email,omitempty"`
	Password          string `yaml:"password,omitempty"`
	PasswordEncrypted string `yaml:"password_encrypted,omitempty"`
	CalendarName      string `yaml:"calendar_name,omitempty"`
	GoogleCredentials string `yaml:"google_credentials,omitempty"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "laget-events", "config.yaml"), nil
}

// Load reads the config file at path. A missing file returns an empty
// config. When the key environment variable is set, the encrypted password
// field is decrypted into Password.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.PasswordEncrypted != "" {
		enc := crypto.NewEncryptor(os.Getenv(KeyEnv))
		if enc == nil {
			return nil, fmt.Errorf("config has an encrypted password but %s is not set", KeyEnv)
		}
		plain, err := enc.Decrypt(cfg.PasswordEncrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypting password: %w", err)
		}
		cfg.Password = plain
	}

	return &cfg, nil
}

// Save writes the config to path with owner-only permissions, creating the
// directory as needed. When the key environment variable is set, the
// password is stored encrypted and the plaintext field is cleared.
func Save(cfg *Config, path string) error {
	out := *cfg
	if enc := crypto.NewEncryptor(os.Getenv(KeyEnv)); enc != nil && out.Password != "" {
		ct, err := enc.Encrypt(out.Password)
		if err != nil {
			return fmt.Errorf("encrypting password: %w", err)
		}
		out.PasswordEncrypted = ct
		out.Password = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Credentials resolves the login credentials: explicit flag values win,
// then environment variables, then the config file. Both must resolve or
// an error telling the user how to configure them is returned.
func (c *Config) Credentials(flagEmail, flagPassword string) (email, password string, err error) {
	email = firstNonEmpty(flagEmail, os.Getenv(emailEnv), c.Email)
	password = firstNonEmpty(flagPassword, os.Getenv(passwordEnv), c.Password)

	if email == "" || password == "" {
		return "", "", fmt.Errorf("laget.se credentials not configured: pass --email/--password, set %s/%s, or run 'laget-events init'", emailEnv, passwordEnv)
	}
	return email, password, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
