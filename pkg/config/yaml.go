package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Environment variables holding credentials
const (
	EnvSSHPassword = "VERSYNC_SSH_PASSWORD"
	EnvSDCUsername = "VERSYNC_SDC_USERNAME"
	EnvSDCPassword = "VERSYNC_SDC_PASSWORD"
)

// Secrets holds credentials that are never written to the config file
type Secrets struct {
	SSHPassword string
	SDCUsername string
	SDCPassword string
}

// HasSDC reports whether portal credentials are available
func (s Secrets) HasSDC() bool {
	return s.SDCUsername != "" && s.SDCPassword != ""
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".config", "versync", "config.yaml"), nil
}

// LoadDefault attempts to load configuration from the default location
// If the file doesn't exist, returns the default configuration
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	return LoadFromFile(path)
}

// ExpandPaths replaces a leading ~ in every local path
func (c *Config) ExpandPaths() error {
	paths := []*string{
		&c.Local.L1BDir,
		&c.Local.SpiceDir,
		&c.Local.EUVMDir,
		&c.Local.ReportsDir,
		&c.Remote.KeyFile,
		&c.Remote.KnownHosts,
		&c.Output.ReportFile,
		&c.Logging.File,
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// LoadSecrets reads credentials from the environment. A .env file in
// dir, if present, seeds variables that are not already set.
func LoadSecrets(dir string) (Secrets, error) {
	if dir != "" {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Secrets{}, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	return Secrets{
		SSHPassword: os.Getenv(EnvSSHPassword),
		SDCUsername: os.Getenv(EnvSDCUsername),
		SDCPassword: os.Getenv(EnvSDCPassword),
	}, nil
}
