// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"` // admin endpoints auth
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// GatewayConfig is one enabled payment gateway. Capability flags decide which
// adapter variants the registry exposes for it.
type GatewayConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Primary     bool   `yaml:"primary"`

	DirectCharge    bool `yaml:"direct_charge"`
	Redirect        bool `yaml:"redirect"`
	Wallet          bool `yaml:"wallet"`
	SavedInstrument bool `yaml:"saved_instrument"`

	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	CallbackURL string `yaml:"callback_url"` // redirect variant return URL
	CancelURL   string `yaml:"cancel_url"`
}

// CurrencyConfig carries the display exchange rate table, keyed by currency
// code, USD -> currency. A storefront currency without a configured rate is a
// startup error; there is deliberately no fallback rate.
type CurrencyConfig struct {
	Rates map[string]string `yaml:"rates"` // decimal strings, e.g. MXN: "17.35"
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Workers    int           `yaml:"workers"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 16/24/32 bytes, AES for stored instrument tokens
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Gateways   []GatewayConfig  `yaml:"gateways"`
	Currency   CurrencyConfig   `yaml:"currency"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Security   SecurityConfig   `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.SessionTTL <= 0 {
		cfg.API.SessionTTL = 30 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}
	if cfg.Reconciler.Workers <= 0 {
		cfg.Reconciler.Workers = 4
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if len(cfg.Gateways) == 0 {
		return nil, errors.New("at least one gateway must be configured")
	}
	primaries := 0
	seen := map[string]bool{}
	for _, g := range cfg.Gateways {
		if g.ID == "" {
			return nil, errors.New("gateway id is required")
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("duplicate gateway id %q", g.ID)
		}
		seen[g.ID] = true
		if g.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return nil, errors.New("at most one gateway may be primary")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
