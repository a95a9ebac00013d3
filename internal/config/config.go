// Package config loads the process-level configuration: storage
// location, data provider endpoints, venue credentials, and monitor
// cadence. Per-user trading policy lives in types.BotConfig instead.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// ProviderConfig selects and orders the market data providers.
type ProviderConfig struct {
	// Order lists provider names, highest priority first.
	Order []string `yaml:"order" validate:"required,min=1,dive,oneof=binance coingecko"`
	// PriceTTL is how long a fetched price stays fresh in the cache.
	PriceTTL time.Duration `yaml:"price_ttl" validate:"gte=0"`
}

// VenueConfig selects and orders the execution venues and carries
// their credentials and endpoints.
type VenueConfig struct {
	// Order lists venue names, highest priority first.
	Order []string `yaml:"order" validate:"required,min=1,dive,oneof=jupiter raydium exchange direct"`

	SolanaRPCURL string `yaml:"solana_rpc_url"`
	JupiterURL   string `yaml:"jupiter_url"`
	RaydiumURL   string `yaml:"raydium_url"`

	// SigningKey seeds the local transaction signer.
	SigningKey string `yaml:"signing_key"`

	BinanceAPIKey    string `yaml:"binance_api_key"`
	BinanceAPISecret string `yaml:"binance_api_secret"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is a zap level name such as debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Config is the full process configuration.
type Config struct {
	// DatabasePath is the sqlite file location.
	DatabasePath string `yaml:"database_path" validate:"required"`

	// MonitorInterval is the health monitor sweep cadence.
	MonitorInterval time.Duration `yaml:"monitor_interval" validate:"gte=0"`

	Providers ProviderConfig `yaml:"providers" validate:"required"`
	Venues    VenueConfig    `yaml:"venues" validate:"required"`
	Log       LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatabasePath:    "tradewind.db",
		MonitorInterval: 60 * time.Second,
		Providers: ProviderConfig{
			Order:    []string{"binance", "coingecko"},
			PriceTTL: 30 * time.Second,
		},
		Venues: VenueConfig{
			Order:        []string{"jupiter", "raydium"},
			SolanaRPCURL: "https://api.mainnet-beta.solana.com",
			JupiterURL:   "https://quote-api.jup.ag/v6",
			RaydiumURL:   "https://transaction-v1.raydium.io",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid process config", err)
	}

	return nil
}

// CredentialCheck reports whether the configured venues have the
// credentials they need. Kept separate from Validate so read-only
// commands can load a config without any secrets present.
func (c *Config) CredentialCheck() error {
	for _, venue := range c.Venues.Order {
		switch venue {
		case "jupiter", "raydium", "direct":
			if c.Venues.SigningKey == "" {
				return errors.Newf(errors.ErrCodeMissingCredentials,
					"venue %s requires a signing key", venue)
			}
		case "exchange":
			if c.Venues.BinanceAPIKey == "" || c.Venues.BinanceAPISecret == "" {
				return errors.New(errors.ErrCodeMissingCredentials,
					"venue exchange requires binance api credentials")
			}
		}
	}

	return nil
}

// Load reads a yaml config file, layered over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read config file %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "parse config file %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
