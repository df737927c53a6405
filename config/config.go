// Package config loads and validates the paymesh runtime configuration.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config is the global configuration shared by the paymesh services.
type Config struct {
	// Service and Version are stamped on every audit entry.
	Service string `mapstructure:"service" validate:"required"`
	Version string `mapstructure:"version"`

	// DefaultAsset is assumed when a payment header omits the asset.
	DefaultAsset string `mapstructure:"default_asset" validate:"required"`

	// DefaultTimeout bounds single ledger calls.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// PollInterval is the confirmation polling cadence.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// ConfirmationTimeout bounds a confirmation wait.
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`

	// Confirmations is the default confirmation count for waits.
	Confirmations int `mapstructure:"confirmations" validate:"min=1"`

	// JobTimeout is the hard ceiling on one job execution.
	JobTimeout time.Duration `mapstructure:"job_timeout"`

	// RoutingPolicy selects mesh node selection behavior.
	RoutingPolicy string `mapstructure:"routing_policy"`

	// SplitPrecision is the decimal precision of split amounts.
	SplitPrecision int32 `mapstructure:"split_precision" validate:"min=0"`

	LogLevel      string `mapstructure:"log_level"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	return &Config{
		Service:             "paymesh",
		Version:             "1.0.0",
		DefaultAsset:        "USDC",
		DefaultTimeout:      30 * time.Second,
		PollInterval:        2 * time.Second,
		ConfirmationTimeout: 120 * time.Second,
		Confirmations:       1,
		JobTimeout:          300 * time.Second,
		RoutingPolicy:       "round-robin",
		SplitPrecision:      6,
		LogLevel:            "info",
		EnableMetrics:       false,
	}
}

// Load reads configuration from the given file (TOML/YAML/JSON, decided by
// extension), layered over defaults, with PAYMESH_* environment variables
// taking precedence. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYMESH")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("service", def.Service)
	v.SetDefault("version", def.Version)
	v.SetDefault("default_asset", def.DefaultAsset)
	v.SetDefault("default_timeout", def.DefaultTimeout)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("confirmation_timeout", def.ConfirmationTimeout)
	v.SetDefault("confirmations", def.Confirmations)
	v.SetDefault("job_timeout", def.JobTimeout)
	v.SetDefault("routing_policy", def.RoutingPolicy)
	v.SetDefault("split_precision", def.SplitPrecision)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("enable_metrics", def.EnableMetrics)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateBasic checks the structural invariants of the configuration.
func (c *Config) ValidateBasic() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid configuration: poll_interval must be positive")
	}
	if c.ConfirmationTimeout <= 0 {
		return fmt.Errorf("invalid configuration: confirmation_timeout must be positive")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("invalid configuration: job_timeout must be positive")
	}
	return nil
}
