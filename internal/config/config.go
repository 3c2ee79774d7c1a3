package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Upstream UpstreamConfig `mapstructure:"upstream" validate:"required"`
	Polling  PollingConfig  `mapstructure:"polling"  validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// SessionRetention is how long a finished session stays queryable.
	SessionRetention time.Duration `mapstructure:"session_retention" validate:"gte=0"`
}

// UpstreamConfig describes the remote task API.
type UpstreamConfig struct {
	// APIKey is the bearer credential. It may be empty at load time; the
	// gateways report a configuration error on first use instead.
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"        validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// PollingConfig controls the fixed-interval status polling schedule.
type PollingConfig struct {
	Interval    time.Duration `mapstructure:"interval"     validate:"gt=0"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1,lte=1000"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL disables generation history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
