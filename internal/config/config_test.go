package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"luckyenvelope/internal/models"
)

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env

	t.Run("Test defaults with memory driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("PRIZE_LIMIT_2", "4")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if cfg.Port != "3000" || cfg.PrizeCacheTTL != 15*time.Second {
			t.Errorf("Unexpected defaults %+v", cfg)
		}
		if len(cfg.Prizes) != 4 || cfg.Prizes[0].ID != "prize-2" || cfg.Prizes[0].Limit != 4 || cfg.Prizes[1].Limit != 1 {
			t.Errorf("Unexpected catalog %+v", cfg.Prizes)
		}
	})

	t.Run("Test nocodb requires token", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "nocodb")
		t.Setenv("NOCODB_API_URL", "https://example.test/api/v2/tables/t/records")
		t.Setenv("NOCODB_TOKEN", "")
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "NOCODB_TOKEN") {
			t.Fatalf("Expected a token error, got %v", err)
		}
	})

	t.Run("Test prizes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prizes.yaml")
		yml := "- id: gold\n  name: Gold\n  limit: 2\n- id: silver\n  name: Silver\n  limit: 10\n"
		if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("STORE_DRIVER", "sqlite")
		t.Setenv("PRIZES_FILE", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(cfg.Prizes) != 2 || cfg.Prizes[1].ID != "silver" || cfg.Prizes[1].Limit != 10 {
			t.Errorf("Unexpected catalog %+v", cfg.Prizes)
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{StoreDriver: DriverMemory, Prizes: []models.Prize{{ID: "a", Limit: 1}}}
	}
	cases := map[string]func(*Config){
		"unknown driver": func(c *Config) { c.StoreDriver = "redis" },
		"empty catalog":  func(c *Config) { c.Prizes = nil },
		"duplicate id":   func(c *Config) { c.Prizes = append(c.Prizes, models.Prize{ID: "a"}) },
		"empty id":       func(c *Config) { c.Prizes[0].ID = "" },
		"negative limit": func(c *Config) { c.Prizes[0].Limit = -1 },
		"bad invite":     func(c *Config) { c.InviteCodes = []string{"OK1", "not ok"} },
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("Expected base config valid, got %v", err)
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected an error, but got nil", name)
		}
	}
}
