package config

import "time"

// ServerConfig holds settings for the long-running serve mode
type ServerConfig struct {
	// PID file location
	PIDFile string `mapstructure:"pid_file" validate:"required"`

	// Save slot the world is loaded from and periodically written to
	SaveSlot string `mapstructure:"save_slot" validate:"required"`

	// How often the world is saved; zero disables periodic saves
	SaveInterval time.Duration `mapstructure:"save_interval"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}
