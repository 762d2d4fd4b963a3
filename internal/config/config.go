// Package config loads application configuration from environment
// variables, applies defaults, and validates everything on startup so
// misconfiguration fails fast.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL,required"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns int32  `env:"DB_MIN_CONNS" envDefault:"4"`
}

// UploadConfig holds ingestion settings.
type UploadConfig struct {
	// MaxFileSize caps uploaded file size in bytes (default 100MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"104857600"`

	// Timeout bounds one ingestion run.
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"10m"`

	// ListPageSize is the default page size for the pledge listing.
	ListPageSize int `env:"LIST_PAGE_SIZE" envDefault:"50"`

	// MaxConcurrent caps simultaneous ingestion runs; further uploads
	// wait up to SlotWait for a slot before being rejected.
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" envDefault:"5"`
	SlotWait      time.Duration `env:"UPLOAD_SLOT_WAIT" envDefault:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Upload.MaxFileSize < 1 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Upload.ListPageSize < 1 {
		return fmt.Errorf("LIST_PAGE_SIZE must be positive, got %d", c.Upload.ListPageSize)
	}
	if c.Upload.MaxConcurrent < 1 {
		return fmt.Errorf("UPLOAD_MAX_CONCURRENT must be positive, got %d", c.Upload.MaxConcurrent)
	}
	return nil
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
