package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "8470", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "http://localhost:8470", cfg.BaseURL)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 3, cfg.Inference.MaxKeyColumns)
	assert.Equal(t, 1000, cfg.Inference.MaxGuesses)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("INFERENCE_MAX_KEY_COLUMNS", "6")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6, cfg.Inference.MaxKeyColumns)
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_SIGNING_SECRET", "")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SIGNING_SECRET")
}

func TestLoad_MaxKeyColumnsBounds(t *testing.T) {
	t.Setenv("INFERENCE_MAX_KEY_COLUMNS", "7")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_key_columns")
}

func TestConnectionString(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "schemalens",
		Password: "secret",
		Database: "schemalens",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=schemalens password=secret dbname=schemalens sslmode=disable",
		dbCfg.ConnectionString())
}
