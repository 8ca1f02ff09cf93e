// Package config loads the dashboard configuration: built-in defaults, then an
// optional YAML file, then environment variables. It is read once at start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/alpha-dashboard/pkg/logging"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Store kinds for the fetch cache.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Views    ViewsConfig    `yaml:"views"`
}

// ServerConfig contains inbound HTTP settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// UpstreamConfig contains settings for the market-data APIs
type UpstreamConfig struct {
	CoinGeckoAPIKey      string        `yaml:"coingecko_api_key"`
	CoinGeckoBaseURL     string        `yaml:"coingecko_base_url"`
	GeckoTerminalBaseURL string        `yaml:"geckoterminal_base_url"`
	UserAgent            string        `yaml:"user_agent"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"max_retries"`
}

// CacheConfig contains fetch cache settings
type CacheConfig struct {
	Store         string        `yaml:"store"` // "memory" or "redis"
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Retention     time.Duration `yaml:"retention"`
}

// ViewsConfig contains dashboard view settings
type ViewsConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Upstream: UpstreamConfig{
			CoinGeckoBaseURL:     "https://api.coingecko.com/api/v3",
			GeckoTerminalBaseURL: "https://api.geckoterminal.com/api/v2",
			UserAgent:            "alpha-dashboard/1.0",
			Timeout:              15 * time.Second,
		},
		Cache: CacheConfig{
			Store:    StoreMemory,
			RedisURL: "localhost:6379",
		},
		Views: ViewsConfig{
			Concurrency: 4,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overrides fields from environment variables that are set and
// non-empty.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: invalid integer %q", key, v)
			}
			*dst = n
		}
		return nil
	}
	setBool := func(key string, dst *bool) error {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: invalid boolean %q", key, v)
			}
			*dst = b
		}
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: invalid duration %q", key, v)
			}
			*dst = d
		}
		return nil
	}

	setString("LOG_LEVEL", &c.Log.Level)
	setString("COINGECKO_API_KEY", &c.Upstream.CoinGeckoAPIKey)
	setString("COINGECKO_BASE_URL", &c.Upstream.CoinGeckoBaseURL)
	setString("GECKOTERMINAL_BASE_URL", &c.Upstream.GeckoTerminalBaseURL)
	setString("USER_AGENT", &c.Upstream.UserAgent)
	setString("CACHE_STORE", &c.Cache.Store)
	setString("REDIS_URL", &c.Cache.RedisURL)
	setString("REDIS_PASSWORD", &c.Cache.RedisPassword)

	if v, ok := get("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}

	for _, err := range []error{
		setInt("PORT", &c.Server.Port),
		setBool("LOG_PRETTY", &c.Log.Pretty),
		setDuration("UPSTREAM_TIMEOUT", &c.Upstream.Timeout),
		setInt("UPSTREAM_MAX_RETRIES", &c.Upstream.MaxRetries),
		setInt("REDIS_DB", &c.Cache.RedisDB),
		setDuration("CACHE_RETENTION", &c.Cache.Retention),
		setInt("VIEW_CONCURRENCY", &c.Views.Concurrency),
	} {
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request timeout must be positive, got: %s", c.Server.RequestTimeout)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got: %s", c.Upstream.Timeout)
	}

	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream max retries must not be negative, got: %d", c.Upstream.MaxRetries)
	}

	if c.Upstream.CoinGeckoBaseURL == "" || c.Upstream.GeckoTerminalBaseURL == "" {
		return fmt.Errorf("upstream base URLs are required")
	}

	if c.Upstream.UserAgent == "" {
		return fmt.Errorf("user agent is required")
	}

	switch c.Cache.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required when cache store is redis")
		}
		if _, err := c.Cache.RedisOptions(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache store must be 'memory' or 'redis', got: %s", c.Cache.Store)
	}

	if c.Cache.Retention < 0 {
		return fmt.Errorf("cache retention must not be negative, got: %s", c.Cache.Retention)
	}

	if c.Views.Concurrency < 1 {
		return fmt.Errorf("view concurrency must be at least 1, got: %d", c.Views.Concurrency)
	}

	return nil
}

// RedisOptions turns the Redis settings into client options. RedisURL may be
// a redis:// URL or a plain host:port address.
func (c CacheConfig) RedisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		if c.RedisPassword != "" {
			opts.Password = c.RedisPassword
		}
		if c.RedisDB != 0 {
			opts.DB = c.RedisDB
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:     c.RedisURL,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}, nil
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return ":" + strconv.Itoa(s.Port)
}
