// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete router configuration.
type Config struct {
	Server       ServerConfig     `yaml:"server"`
	Redis        RedisConfig      `yaml:"redis"`
	Providers    []ProviderConfig `yaml:"providers"`
	Routing      RoutingConfig    `yaml:"routing"`
	GatewayLimit GatewayLimit     `yaml:"gateway_limit"`
	Logging      LoggingConfig    `yaml:"logging"`
	Metrics      MetricsConfig    `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig points at the shared counter store. An empty Addr selects
// the in-memory store, suitable only for single-instance deployments.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// ProviderConfig defines one provider's profile and credentials.
type ProviderConfig struct {
	Name            string             `yaml:"name"`
	APIKey          string             `yaml:"api_key"`
	BaseURL         string             `yaml:"base_url"`
	Model           string             `yaml:"model"`
	CostPer1KInput  float64            `yaml:"cost_per_1k_input"`
	CostPer1KOutput float64            `yaml:"cost_per_1k_output"`
	MaxTokens       int                `yaml:"max_tokens"`
	RateLimit       int                `yaml:"rate_limit"` // requests per 60s window
	QualityByTask   map[string]float64 `yaml:"quality_by_task"`
}

// RoutingConfig contains routing engine settings.
type RoutingConfig struct {
	DecisionCacheTTL  time.Duration `yaml:"decision_cache_ttl"` // 0 disables the cache
	DispatchTimeout   time.Duration `yaml:"dispatch_timeout"`
	RecorderQueueSize int           `yaml:"recorder_queue_size"`
}

// GatewayLimit defines the per-client request throttle at the HTTP edge.
// This is separate from the per-provider admission windows.
type GatewayLimit struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			OpTimeout: 2 * time.Second,
		},
		Routing: RoutingConfig{
			DecisionCacheTTL:  time.Hour,
			DispatchTimeout:   60 * time.Second,
			RecorderQueueSize: 1024,
		},
		GatewayLimit: GatewayLimit{
			Enabled:           false,
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("provider[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true

		if p.CostPer1KInput < 0 || p.CostPer1KOutput < 0 {
			return fmt.Errorf("provider %q: cost must not be negative", p.Name)
		}
		if p.MaxTokens <= 0 {
			return fmt.Errorf("provider %q: max_tokens must be positive", p.Name)
		}
		if p.RateLimit < 0 {
			return fmt.Errorf("provider %q: rate_limit must not be negative", p.Name)
		}
		for task, q := range p.QualityByTask {
			if q < 0 || q > 1 {
				return fmt.Errorf("provider %q: quality for task %q must be in [0,1]", p.Name, task)
			}
		}
	}

	return nil
}
