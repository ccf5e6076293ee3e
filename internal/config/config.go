// Package config resolves runtime settings: defaults, then an optional YAML
// file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tinoosan/atmledger/internal/ledger"
)

type Config struct {
	Server struct {
		ListenAddr     string `yaml:"listen_addr"`
		AdminJWTSecret string `yaml:"admin_jwt_secret"`
	} `yaml:"server"`
	Storage struct {
		AccountsFile     string `yaml:"accounts_file"`
		TransactionsFile string `yaml:"transactions_file"`
		DatabaseURL      string `yaml:"database_url"`
	} `yaml:"storage"`
	Ledger struct {
		Currency    string `yaml:"currency"`
		InitialCash string `yaml:"initial_cash"`
	} `yaml:"ledger"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Default() Config {
	cfg := Config{}
	cfg.Server.ListenAddr = ":8080"
	cfg.Storage.AccountsFile = "accounts.txt"
	cfg.Storage.TransactionsFile = "transactions.txt"
	cfg.Ledger.Currency = ledger.DefaultCurrency
	cfg.Ledger.InitialCash = "10000.00"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve builds the effective configuration. CONFIG_FILE, when set, is
// loaded first; the remaining variables override individual fields.
func Resolve(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(getenv)
	cfg.Ledger.Currency = strings.ToUpper(strings.TrimSpace(cfg.Ledger.Currency))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Server.ListenAddr, "LISTEN_ADDR")
	set(&c.Server.AdminJWTSecret, "ADMIN_JWT_SECRET")
	set(&c.Storage.AccountsFile, "ACCOUNTS_FILE")
	set(&c.Storage.TransactionsFile, "TRANSACTIONS_FILE")
	set(&c.Storage.DatabaseURL, "DATABASE_URL")
	set(&c.Ledger.Currency, "CURRENCY")
	set(&c.Ledger.InitialCash, "INITIAL_CASH")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
}

// Validate checks the currency and initial cash reserve.
func (c Config) Validate() error {
	if err := ledger.CheckCurrency(c.Ledger.Currency); err != nil {
		return err
	}
	cash, err := ledger.ParseAmount(c.Ledger.Currency, c.Ledger.InitialCash)
	if err != nil {
		return fmt.Errorf("initial_cash: %w", err)
	}
	if cash.IsNeg() {
		return fmt.Errorf("initial_cash must not be negative")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	return nil
}
