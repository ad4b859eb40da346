package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/tasknest/tasknest/internal/domain/locale"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefix TASKNEST_, nested keys joined with "_", e.g.
// TASKNEST_DATABASE_URL) take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tasknest")

	v.SetEnvPrefix("TASKNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry the load.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !containsLocale(cfg.Locale.Supported, locale.Default) {
		return nil, fmt.Errorf("invalid configuration: locale.supported must include %q", locale.Default)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.request_timeout", "15s")

	// Registered empty so AutomaticEnv surfaces it to Unmarshal; validation
	// rejects the empty value when neither env nor file provides one.
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.list_ttl", "5m")
	v.SetDefault("cache.detail_ttl", "10m")
	v.SetDefault("cache.stats_ttl", "2m")

	v.SetDefault("events.addr", "localhost:6379")
	v.SetDefault("events.db", 0)
	v.SetDefault("events.channel_prefix", "tasknest:events")

	v.SetDefault("locale.supported", []string{"en", "fr", "de", "es"})
}

func containsLocale(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
