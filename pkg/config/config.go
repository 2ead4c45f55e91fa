package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the schemalens engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8470"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Engine store configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory containing engine store migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Inference holds defaults for the candidate-key search.
	Inference InferenceConfig `yaml:"inference"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// Enabled controls whether bearer tokens are required on /api routes.
	// Disabled by default for local single-user work.
	Enabled bool `yaml:"enabled" env:"AUTH_ENABLED" env-default:"false"`

	// SigningSecret is the HS256 secret used to verify bearer tokens.
	// Required when Enabled is true. Secret - not in YAML.
	SigningSecret string `yaml:"-" env:"AUTH_SIGNING_SECRET"`
}

// DatabaseConfig holds PostgreSQL engine store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"schemalens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"schemalens"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// InferenceConfig holds engine-wide defaults for the key guesser.
type InferenceConfig struct {
	// MaxKeyColumns bounds the size of column combinations tested for
	// uniqueness. Hard-capped at 6.
	MaxKeyColumns int `yaml:"max_key_columns" env:"INFERENCE_MAX_KEY_COLUMNS" env-default:"3"`

	// MaxGuesses bounds the total number of uniqueness probes per table.
	MaxGuesses int `yaml:"max_guesses" env:"INFERENCE_MAX_GUESSES" env-default:"1000"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The file is optional: when absent, configuration comes from
// the environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Enabled && c.Auth.SigningSecret == "" {
		return errors.New("AUTH_SIGNING_SECRET is required when auth is enabled")
	}
	if c.Inference.MaxKeyColumns < 1 || c.Inference.MaxKeyColumns > 6 {
		return fmt.Errorf("inference.max_key_columns must be between 1 and 6, got %d", c.Inference.MaxKeyColumns)
	}
	if c.Inference.MaxGuesses < 1 {
		return fmt.Errorf("inference.max_guesses must be positive, got %d", c.Inference.MaxGuesses)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string for the engine store.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
