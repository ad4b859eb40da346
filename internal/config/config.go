// Package config defines the application configuration and its loading.
package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Events   EventsConfig   `mapstructure:"events" validate:"required"`
	Locale   LocaleConfig   `mapstructure:"locale" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"required"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// CacheConfig configures the Redis-backed task cache.
type CacheConfig struct {
	Addr      string        `mapstructure:"addr" validate:"required"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"gte=0"`
	ListTTL   time.Duration `mapstructure:"list_ttl" validate:"required"`
	DetailTTL time.Duration `mapstructure:"detail_ttl" validate:"required"`
	StatsTTL  time.Duration `mapstructure:"stats_ttl" validate:"required"`
}

// EventsConfig configures the pub/sub event broadcaster. Addr may point at
// the same Redis as the cache or a dedicated one.
type EventsConfig struct {
	Addr          string `mapstructure:"addr" validate:"required"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db" validate:"gte=0"`
	ChannelPrefix string `mapstructure:"channel_prefix" validate:"required"`
}

// LocaleConfig declares the locale codes the service accepts in localized
// text fields. It must include the default locale "en".
type LocaleConfig struct {
	Supported []string `mapstructure:"supported" validate:"required,min=1"`
}
