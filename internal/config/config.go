package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	// DefaultConfigPath is the config file used when none is provided.
	DefaultConfigPath = "config.yaml"
	// DefaultListenAddr is the HTTP listen address fallback.
	DefaultListenAddr = ":8080"
	// DefaultSessionExpiry bounds session token lifetime.
	DefaultSessionExpiry = 12 * time.Hour
)

// AppConfig holds process-level options passed from the command line.
type AppConfig struct {
	ConfigPath string
}

// SessionConfig holds session token signing options.
type SessionConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"-"`
}

// UnmarshalYAML decodes the session section, parsing expiry as a Go duration
// string such as "12h".
func (c *SessionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Secret string `yaml:"secret"`
		Expiry string `yaml:"expiry"`
	}
	if errDecode := value.Decode(&raw); errDecode != nil {
		return errDecode
	}
	c.Secret = raw.Secret
	if expiry := strings.TrimSpace(raw.Expiry); expiry != "" {
		parsed, errParse := time.ParseDuration(expiry)
		if errParse != nil {
			return fmt.Errorf("config: parse session expiry: %w", errParse)
		}
		c.Expiry = parsed
	}
	return nil
}

// WebAuthnConfig holds relying party options.
type WebAuthnConfig struct {
	RPID    string   `yaml:"rp-id"`
	RPName  string   `yaml:"rp-name"`
	Origins []string `yaml:"origins"`
}

// LogConfig holds log output options.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Level      string `yaml:"level"`
}

// FileConfig is the on-disk YAML configuration.
type FileConfig struct {
	Listen   string         `yaml:"listen"`
	Database string         `yaml:"database"`
	Redis    string         `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	WebAuthn WebAuthnConfig `yaml:"webauthn"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath returns the effective config file path.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath
	}
	return filepath.Clean(trimmed)
}

// Load reads and validates the YAML configuration file.
func Load(path string) (*FileConfig, error) {
	data, errRead := os.ReadFile(ResolveConfigPath(path))
	if errRead != nil {
		return nil, fmt.Errorf("config: read: %w", errRead)
	}

	var cfg FileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse: %w", errUnmarshal)
	}

	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListenAddr
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, fmt.Errorf("config: database dsn is required")
	}
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return nil, fmt.Errorf("config: session secret is required")
	}
	if cfg.Session.Expiry <= 0 {
		cfg.Session.Expiry = DefaultSessionExpiry
	}
	return &cfg, nil
}

// LoadDatabaseDSN reads only the database DSN from the config file.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database, nil
}
