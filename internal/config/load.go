package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// SPRINTDECK_ prefix with underscores for nesting (SPRINTDECK_SERVER_PORT)
// and take precedence over file values. Returns a populated Config or an
// error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults for everything that has a sensible one. Database URL and
	// push endpoints have no default and must be provided.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("push.endpoint", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.receipts_endpoint", "https://exp.host/--/api/v2/push/getReceipts")
	v.SetDefault("push.timeout_seconds", 30)
	v.SetDefault("sweep.interval_minutes", 15)
	v.SetDefault("sweep.concurrency", 8)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SPRINTDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults need an explicit binding for AutomaticEnv to
	// surface them through Unmarshal.
	if err := v.BindEnv("database.url"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
