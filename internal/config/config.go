// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package config

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults
//  2. Config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables
type Config struct {
	OctoPrint  OctoPrintConfig  `koanf:"octoprint"`
	Connection ConnectionConfig `koanf:"connection"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Store      StoreConfig      `koanf:"store"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// OctoPrintConfig identifies the print server to synchronize with.
type OctoPrintConfig struct {
	URL       string `koanf:"url" validate:"required,http_url"`
	APIKey    string `koanf:"api_key" validate:"required,min=16"`
	Name      string `koanf:"name" validate:"required,max=64"`
	PrinterID string `koanf:"printer_id" validate:"omitempty,max=64"`
}

// ConnectionConfig tunes the push channel supervisor.
type ConnectionConfig struct {
	// HeartbeatInterval is the keep-alive period while connected.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"gte=1s"`

	// RetryBaseDelay is multiplied by the attempt number for each reconnect.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gt=0"`

	// MaxRetries is the number of reconnect attempts before giving up.
	MaxRetries int `koanf:"max_retries" validate:"gte=0,lte=50"`

	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	DialTimeout    time.Duration `koanf:"dial_timeout" validate:"gt=0"`

	// ReadTimeout bounds the wait for any frame; OctoPrint pushes at least every few seconds.
	ReadTimeout time.Duration `koanf:"read_timeout" validate:"gt=0"`
}

// BreakerConfig holds the REST circuit breaker settings.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval         time.Duration `koanf:"interval" validate:"gt=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `koanf:"min_requests" validate:"gte=1"`
}

// StoreConfig configures the badger repository.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	// AllowedOrigins lists origins accepted on the websocket relay; "*" allows any.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SecurityConfig holds secrets.
type SecurityConfig struct {
	EncryptionSecret string `koanf:"encryption_secret" validate:"required,min=32"`
}

// SupervisorConfig mirrors suture's failure handling knobs.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// ResolvedPrinterID returns the configured printer ID, or one derived from the URL.
func (c *Config) ResolvedPrinterID() string {
	if c.OctoPrint.PrinterID != "" {
		return c.OctoPrint.PrinterID
	}
	return GeneratePrinterID(c.OctoPrint.URL)
}

// GeneratePrinterID derives a stable ID from a server URL.
// The same URL always yields the same ID so persisted records survive restarts.
func GeneratePrinterID(rawURL string) string {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(rawURL)), "/")
	sum := sha256.Sum256([]byte("octoprint:" + normalized))
	return "octoprint-" + hex.EncodeToString(sum[:6])
}
