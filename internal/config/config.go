package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Push     PushConfig     `mapstructure:"push"     validate:"required"`
	Sweep    SweepConfig    `mapstructure:"sweep"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// PushConfig configures the push-delivery collaborator.
type PushConfig struct {
	// Endpoint is the batch send URL of the push service.
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	// ReceiptsEndpoint is the delivery receipt URL of the push service.
	ReceiptsEndpoint string `mapstructure:"receipts_endpoint" validate:"required,url"`
	// TimeoutSeconds bounds each HTTP call to the push service.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// SweepConfig configures the periodic notification sweep.
type SweepConfig struct {
	// IntervalMinutes is how often the sweep runs.
	IntervalMinutes int `mapstructure:"interval_minutes" validate:"required,gt=0"`
	// Concurrency caps per-user fan-out within one sweep.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0"`
}
