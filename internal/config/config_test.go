package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a map")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9999
search:
  default_page_size: 12
  query_timeout: 20s
catalog:
  api_key: "abc123"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultPageSize != 12 {
		t.Errorf("expected page size 12, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.QueryTimeout != 20*time.Second {
		t.Errorf("expected query timeout 20s, got %v", cfg.Search.QueryTimeout)
	}
	if cfg.Catalog.APIKey != "abc123" {
		t.Errorf("expected api key override, got %q", cfg.Catalog.APIKey)
	}
	// Untouched fields keep defaults
	if cfg.Search.MaxStrategies != 7 {
		t.Errorf("expected default max strategies 7, got %d", cfg.Search.MaxStrategies)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CATALOG_KEY", "secret-from-env")
	path := writeTempConfig(t, `
catalog:
  api_key: "${TEST_CATALOG_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Catalog.APIKey != "secret-from-env" {
		t.Errorf("expected env expansion, got %q", cfg.Catalog.APIKey)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty catalog url", func(c *Config) { c.Catalog.BaseURL = "" }},
		{"zero rate limit", func(c *Config) { c.Catalog.RateLimit.Requests = 0 }},
		{"zero rate window", func(c *Config) { c.Catalog.RateLimit.Window = 0 }},
		{"ai enabled without endpoint", func(c *Config) { c.AI.Enabled = true; c.AI.Endpoint = "" }},
		{"zero page size", func(c *Config) { c.Search.DefaultPageSize = 0 }},
		{"huge max page size", func(c *Config) { c.Search.MaxPageSize = 500 }},
		{"zero max strategies", func(c *Config) { c.Search.MaxStrategies = 0 }},
		{"confidence caps inverted", func(c *Config) {
			c.Search.HeuristicConfidence = 30
			c.Search.EmergencyConfidence = 40
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
