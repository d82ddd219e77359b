package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0", cfg.Gateway.Host)
	assert.NotZero(t, cfg.Gateway.Port)
	assert.Equal(t, 1800, cfg.Session.TTLSeconds)
	assert.NotEmpty(t, cfg.Session.SweepSchedule, "sweep schedule should have a default cron expression")
	assert.NotEmpty(t, cfg.Services.OrdersURL)
	assert.NotEmpty(t, cfg.Services.ProductsURL)
	assert.Equal(t, 5, cfg.Services.TimeoutSeconds)
	assert.Empty(t, cfg.Providers.Perplexity.APIKey, "credentials must be empty by default")
	assert.NotEmpty(t, cfg.Providers.Perplexity.APIBase)
	assert.Equal(t, 0.5, cfg.Intent.Threshold)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Intent.Threshold)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"gateway":{"port":9001},"session":{"ttl_seconds":60}}`), 0600)
	require.NoError(t, err)

	t.Setenv("SHOPCHAT_SESSION_TTL_SECONDS", "120")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Gateway.Port, "file value should override default")
	assert.Equal(t, 120, cfg.Session.TTLSeconds, "env should override file")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Gateway.Port = 18080
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 18080, loaded.Gateway.Port)
}
