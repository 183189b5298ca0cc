// Package config loads server configuration from a YAML file with
// environment-variable overrides. Unknown environment variables are
// ignored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server.
type Config struct {
	Listen    string          `yaml:"listen"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Instance  InstanceConfig  `yaml:"instance"`
	Origins   []string        `yaml:"allowed_origins"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Timing    TimingConfig    `yaml:"timing"`
}

// APIConfig covers the read-only HTTP surface (health, metrics, game list).
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// StorageConfig selects the state store variant.
type StorageConfig struct {
	Type string `yaml:"type"` // memory, sqlite, redis
	Path string `yaml:"path"` // sqlite database path
}

// RedisConfig holds the Redis connection.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Primary bool   `yaml:"primary"` // force Redis-primary mode
}

// InstanceConfig identifies this process among its peers.
type InstanceConfig struct {
	ID      string `yaml:"id"`
	Workers int    `yaml:"workers"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // otlp, stdout, none
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// FeedbackConfig controls feedback persistence.
type FeedbackConfig struct {
	Path string `yaml:"path"` // sqlite path; empty keeps feedback in memory
}

// TimingConfig bundles the intervals that drive background loops.
type TimingConfig struct {
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	IdleTimeout         time.Duration `yaml:"idle_timeout"`
	MaxAge              time.Duration `yaml:"max_age"`
	PersistenceInterval time.Duration `yaml:"persistence_interval"`
	ShutdownGrace       time.Duration `yaml:"shutdown_grace"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		API: APIConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		Storage: StorageConfig{Type: "memory", Path: "data/games.db"},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "taportarp",
		},
		Instance: InstanceConfig{Workers: 1},
		Timing: TimingConfig{
			CacheTTL:            5 * time.Second,
			CleanupInterval:     5 * time.Minute,
			IdleTimeout:         5 * time.Minute,
			MaxAge:              24 * time.Hour,
			PersistenceInterval: 30 * time.Second,
			ShutdownGrace:       30 * time.Second,
		},
	}
}

// Load reads the YAML file (optional) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Instance.ID == "" {
		cfg.Instance.ID = uuid.New().String()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
		if c.Storage.Type == "memory" {
			c.Storage.Type = "redis"
		}
	}
	if v := os.Getenv("REDIS_PRIMARY"); v == "true" || v == "1" {
		c.Redis.Primary = true
		c.Storage.Type = "redis"
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Origins = splitAndTrim(v)
	}
	if v := os.Getenv("INSTANCE_ID"); v != "" {
		c.Instance.ID = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Instance.Workers = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("storage type redis requires REDIS_URL")
	}
	return nil
}

// RedisPrimary reports whether the server runs in Redis-primary mode.
func (c *Config) RedisPrimary() bool {
	return c.Storage.Type == "redis" || c.Redis.Primary
}

// OriginAllowed checks an Origin header value against the allow list.
// An entry "*.example.com" matches any subdomain of example.com. An empty
// list allows everything (development mode).
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.Origins) == 0 {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	for _, allowed := range c.Origins {
		if allowed == "*" {
			return true
		}
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if strings.EqualFold(host, allowed) || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
