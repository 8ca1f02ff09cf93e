package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	config := Default()

	if err := config.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if config.Cache.Store != StoreMemory {
		t.Errorf("Expected memory store by default, got %q", config.Cache.Store)
	}
	if config.Upstream.CoinGeckoAPIKey != "" {
		t.Error("API key should be empty by default")
	}
	if config.Upstream.MaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", config.Upstream.MaxRetries)
	}
}

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "dashboard.yaml")

	configContent := `
server:
  port: 9999
  request_timeout: 5s
log:
  level: debug
upstream:
  coingecko_base_url: "http://cg.local/api/v3"
  timeout: 3s
  max_retries: 2
cache:
  store: redis
  redis_url: "redis://cache.local:6379/2"
  retention: 24h
views:
  concurrency: 8
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", config.Server.Port)
	}
	if config.Server.RequestTimeout != 5*time.Second {
		t.Errorf("Expected request timeout 5s, got %s", config.Server.RequestTimeout)
	}
	if config.Upstream.CoinGeckoBaseURL != "http://cg.local/api/v3" {
		t.Errorf("CoinGeckoBaseURL = %q", config.Upstream.CoinGeckoBaseURL)
	}
	if config.Upstream.GeckoTerminalBaseURL != "https://api.geckoterminal.com/api/v2" {
		t.Errorf("unset field should keep its default, got %q", config.Upstream.GeckoTerminalBaseURL)
	}
	if config.Upstream.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d", config.Upstream.MaxRetries)
	}
	if config.Cache.Retention != 24*time.Hour {
		t.Errorf("Retention = %s", config.Cache.Retention)
	}
	if config.Views.Concurrency != 8 {
		t.Errorf("Concurrency = %d", config.Views.Concurrency)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configFile, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configFile); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := os.WriteFile(configFile, []byte("server:\n  port: 9999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("COINGECKO_API_KEY", "demo-key")
	t.Setenv("GECKOTERMINAL_BASE_URL", "http://gt.local/api/v2")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("CACHE_STORE", "redis")
	t.Setenv("REDIS_DB", "3")

	config, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", config.Server.Port)
	}
	if config.Upstream.CoinGeckoAPIKey != "demo-key" {
		t.Errorf("CoinGeckoAPIKey = %q", config.Upstream.CoinGeckoAPIKey)
	}
	if config.Upstream.GeckoTerminalBaseURL != "http://gt.local/api/v2" {
		t.Errorf("GeckoTerminalBaseURL = %q", config.Upstream.GeckoTerminalBaseURL)
	}
	if config.Upstream.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s", config.Upstream.Timeout)
	}
	if !config.Log.Pretty {
		t.Error("LOG_PRETTY should enable pretty logging")
	}
	if config.Cache.Store != StoreRedis || config.Cache.RedisDB != 3 {
		t.Errorf("Cache = %+v", config.Cache)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PORT", "eighty"},
		{"LOG_PRETTY", "maybe"},
		{"UPSTREAM_TIMEOUT", "10"},
		{"CACHE_RETENTION", "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			config := Default()
			lookup := func(key string) (string, bool) {
				if key == tt.key {
					return tt.value, true
				}
				return "", false
			}

			err := config.applyEnv(lookup)
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Expected error naming %s, got %v", tt.key, err)
			}
		})
	}
}

func TestApplyEnv_EmptyValueKeepsDefault(t *testing.T) {
	config := Default()
	lookup := func(key string) (string, bool) { return "", true }

	if err := config.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("empty PORT should keep default, got %d", config.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero upstream timeout", func(c *Config) { c.Upstream.Timeout = 0 }, true},
		{"negative retries", func(c *Config) { c.Upstream.MaxRetries = -1 }, true},
		{"unknown store", func(c *Config) { c.Cache.Store = "disk" }, true},
		{"redis without url", func(c *Config) { c.Cache.Store = StoreRedis; c.Cache.RedisURL = "" }, true},
		{"redis with bad url", func(c *Config) { c.Cache.Store = StoreRedis; c.Cache.RedisURL = "http://x" }, true},
		{"negative retention", func(c *Config) { c.Cache.Retention = -time.Second }, true},
		{"zero view concurrency", func(c *Config) { c.Views.Concurrency = 0 }, true},
		{"missing user agent", func(c *Config) { c.Upstream.UserAgent = "" }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"warning log level", func(c *Config) { c.Log.Level = "warning" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := CacheConfig{RedisURL: "localhost:6379", RedisDB: 2, RedisPassword: "pw"}.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = CacheConfig{RedisURL: "redis://:secret@cache.local:6380/5"}.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions(url) error = %v", err)
	}
	if opts.Addr != "cache.local:6380" || opts.DB != 5 || opts.Password != "secret" {
		t.Errorf("opts = %+v", opts)
	}
}
