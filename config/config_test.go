package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "paymesh", cfg.Service)
	assert.Equal(t, "USDC", cfg.DefaultAsset)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.ConfirmationTimeout)
	assert.Equal(t, 1, cfg.Confirmations)
	assert.Equal(t, 300*time.Second, cfg.JobTimeout)
	assert.Equal(t, "round-robin", cfg.RoutingPolicy)
	assert.Equal(t, int32(6), cfg.SplitPrecision)

	require.NoError(t, cfg.ValidateBasic())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paymesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service: image-gen
default_asset: DAI
confirmations: 3
routing_policy: load-based
enable_metrics: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "image-gen", cfg.Service)
	assert.Equal(t, "DAI", cfg.DefaultAsset)
	assert.Equal(t, 3, cfg.Confirmations)
	assert.Equal(t, "load-based", cfg.RoutingPolicy)
	assert.True(t, cfg.EnableMetrics)

	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PAYMESH_SERVICE", "env-service")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-service", cfg.Service)
}

func TestValidateBasic(t *testing.T) {
	t.Run("missing service", func(t *testing.T) {
		cfg := Default()
		cfg.Service = ""
		require.Error(t, cfg.ValidateBasic())
	})

	t.Run("missing asset", func(t *testing.T) {
		cfg := Default()
		cfg.DefaultAsset = ""
		require.Error(t, cfg.ValidateBasic())
	})

	t.Run("zero confirmations", func(t *testing.T) {
		cfg := Default()
		cfg.Confirmations = 0
		require.Error(t, cfg.ValidateBasic())
	})

	t.Run("non-positive intervals", func(t *testing.T) {
		for _, mutate := range []func(*Config){
			func(c *Config) { c.PollInterval = 0 },
			func(c *Config) { c.ConfirmationTimeout = 0 },
			func(c *Config) { c.JobTimeout = -time.Second },
		} {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.ValidateBasic())
		}
	})
}
