// Package config holds process configuration and the session policy.
//
// Process configuration comes from environment variables (envconfig).
// The policy — which client label gets which uart line, at which baud
// rate, with or without geometry detection — lives in a separate file,
// YAML or TOML, pointed to by UART_POLICY.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	UART      UARTConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8640"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// UARTConfig holds uart server configuration.
type UARTConfig struct {
	// PolicyPath locates the policy file (.yaml/.yml or .toml).
	PolicyPath string `envconfig:"UART_POLICY" default:"uartd.yaml"`

	// DetectTimeoutMS bounds the terminal geometry probe.
	DetectTimeoutMS int `envconfig:"UART_DETECT_TIMEOUT_MS" default:"2000"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8640",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		UART: UARTConfig{
			PolicyPath:      "uartd.yaml",
			DetectTimeoutMS: 2000,
		},
	}
}
