package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is a named connection saved in the user config file.
type Profile struct {
	DSN    string `yaml:"dsn,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Flavor string `yaml:"flavor,omitempty"`
}

// UserConfig is the on-disk CLI configuration.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile,omitempty"`
	Profiles       map[string]Profile `yaml:"profiles,omitempty"`
}

// ActiveProfile resolves the profile to use: the explicit override if
// given, otherwise current-profile, otherwise an empty profile.
func (c *UserConfig) ActiveProfile(override string) (Profile, string) {
	name := override
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		return Profile{}, ""
	}
	return c.Profiles[name], name
}

// ConfigDir returns the directory holding the CLI config file.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".schemalens"), nil
}

func configPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadUserConfig reads the config file. A missing file is not an error;
// an empty config is returned instead.
func LoadUserConfig() (*UserConfig, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveUserConfig writes the config file, creating the directory if needed.
// Profiles can hold connection strings, so the file is user-only.
func SaveUserConfig(cfg *UserConfig) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
