// Package config loads process configuration from the environment and the
// prize catalog from the environment or a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"luckyenvelope/internal/models"
	"luckyenvelope/internal/store"
)

// Store drivers.
const (
	DriverNocoDB = "nocodb"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the process configuration. Everything except Prizes comes from
// environment variables.
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"nocodb"`
	NocoDBURL     string        `env:"NOCODB_API_URL"`
	NocoDBToken   string        `env:"NOCODB_TOKEN"`
	NocoDBRate    float64       `env:"NOCODB_RATE_LIMIT" envDefault:"20"`
	NocoDBTimeout time.Duration `env:"NOCODB_TIMEOUT" envDefault:"10s"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"envelope.db"`

	PrizeCacheTTL time.Duration `env:"PRIZE_CACHE_TTL" envDefault:"15s"`
	PrizesFile    string        `env:"PRIZES_FILE"`

	// Limits for the built-in catalog; ignored when PrizesFile is set.
	PrizeLimit2 int `env:"PRIZE_LIMIT_2" envDefault:"0"`
	PrizeLimit3 int `env:"PRIZE_LIMIT_3" envDefault:"1"`
	PrizeLimit4 int `env:"PRIZE_LIMIT_4" envDefault:"0"`
	PrizeLimit5 int `env:"PRIZE_LIMIT_5" envDefault:"0"`

	// InviteCodes are created at startup on stores that support it.
	InviteCodes []string `env:"INVITE_CODES"`

	StaticDir  string `env:"STATIC_DIR"`
	LogVerbose bool   `env:"LOG_VERBOSE"`

	Prizes []models.Prize
}

// Load reads an optional .env file, then the environment, then the prize
// catalog, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.PrizesFile != "" {
		prizes, err := LoadPrizes(cfg.PrizesFile)
		if err != nil {
			return nil, err
		}
		cfg.Prizes = prizes
	} else {
		cfg.Prizes = []models.Prize{
			{ID: "prize-2", Name: "Máy tính Casio FX580", Limit: cfg.PrizeLimit2},
			{ID: "prize-3", Name: "5.000 F-point", Limit: cfg.PrizeLimit3},
			{ID: "prize-4", Name: "200.000 F-point", Limit: cfg.PrizeLimit4},
			{ID: "prize-5", Name: "10.000 F-point", Limit: cfg.PrizeLimit5},
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPrizes reads a YAML list of {id, name, limit}.
func LoadPrizes(path string) ([]models.Prize, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prizes file: %w", err)
	}
	var prizes []models.Prize
	if err := yaml.Unmarshal(data, &prizes); err != nil {
		return nil, fmt.Errorf("parse prizes file: %w", err)
	}
	return prizes, nil
}

// Validate checks the store settings, the prize catalog and the invite codes.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverNocoDB:
		if c.NocoDBURL == "" {
			return fmt.Errorf("NOCODB_API_URL is required for the %s driver", DriverNocoDB)
		}
		if c.NocoDBToken == "" {
			return fmt.Errorf("NOCODB_TOKEN is required for the %s driver", DriverNocoDB)
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if len(c.Prizes) == 0 {
		return fmt.Errorf("prize catalog is empty")
	}
	seen := make(map[string]bool, len(c.Prizes))
	for _, p := range c.Prizes {
		if p.ID == "" {
			return fmt.Errorf("prize with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate prize id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Limit < 0 {
			return fmt.Errorf("prize %q: negative limit %d", p.ID, p.Limit)
		}
	}
	for _, code := range c.InviteCodes {
		if !models.ValidCode(code) {
			return fmt.Errorf("INVITE_CODES: invalid code %q", code)
		}
	}
	return nil
}

// StoreConfig maps the store settings onto store.OpenConfig.
func (c *Config) StoreConfig() store.OpenConfig {
	return store.OpenConfig{
		Driver: c.StoreDriver,
		NocoDB: store.NocoDBConfig{
			RecordsURL:    c.NocoDBURL,
			Token:         c.NocoDBToken,
			Timeout:       c.NocoDBTimeout,
			RatePerSecond: c.NocoDBRate,
		},
		SQLitePath: c.SQLitePath,
	}
}
