package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("POSTGRES_HOST", "testhost"); err != nil {
		t.Fatalf("Failed to set POSTGRES_HOST: %v", err)
	}
	if err := os.Setenv("SCRAPER_FETCH_DELAY", "250ms"); err != nil {
		t.Fatalf("Failed to set SCRAPER_FETCH_DELAY: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("POSTGRES_HOST")
		_ = os.Unsetenv("SCRAPER_FETCH_DELAY")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}

	if cfg.Scraper.FetchDelay != 250*time.Millisecond {
		t.Errorf("Scraper.FetchDelay = %v, want %v", cfg.Scraper.FetchDelay, 250*time.Millisecond)
	}
}

func TestMissingFirecrawlKeyIsValid(t *testing.T) {
	_ = os.Unsetenv("FIRECRAWL_API_KEY")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Firecrawl.APIKey != "" {
		t.Errorf("Firecrawl.APIKey = %v, want empty", cfg.Firecrawl.APIKey)
	}
	if cfg.Firecrawl.BaseURL == "" {
		t.Error("Firecrawl.BaseURL should carry a default")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"parses valid duration", "5s", time.Second, 5 * time.Second},
		{"falls back on invalid", "not-a-duration", time.Second, time.Second},
		{"falls back on unset", "", 2 * time.Second, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv("TEST_DURATION", tt.envValue); err != nil {
					t.Fatalf("Failed to set TEST_DURATION: %v", err)
				}
				defer func() { _ = os.Unsetenv("TEST_DURATION") }()
			}

			if got := getEnvAsDuration("TEST_DURATION", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
