package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Simulation   SimulationConfig   `mapstructure:"simulation"`
	Economy      EconomyConfig      `mapstructure:"economy"`
	Construction ConstructionConfig `mapstructure:"construction"`
	Server       ServerConfig       `mapstructure:"server"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rts-production")
	}

	v.SetEnvPrefix("RTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we'll use env vars and defaults
	}

	// DATABASE_URL is honoured without the RTS_ prefix
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnvKeys registers the scalar keys so AutomaticEnv sees them when no
// config file mentions them.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"database.type", "database.path", "database.host", "database.port", "database.name",
		"logging.level", "logging.format", "logging.output", "logging.file_path", "logging.include_caller",
		"metrics.enabled", "metrics.port", "metrics.host", "metrics.path",
		"simulation.tick_rate", "simulation.max_resource_wait", "simulation.meltdown_duration",
		"simulation.heat_generation_rate", "simulation.heat_dissipation_rate", "simulation.max_heat",
		"simulation.overclock_ramp_rate", "simulation.max_overclock", "simulation.queue_capacity",
		"simulation.warning_threshold", "simulation.base_speed", "simulation.factory_max_health",
		"economy.catalog_path", "economy.failure_history_size", "economy.balance_cap", "economy.sandbox",
		"construction.min_factory_distance", "construction.max_factories_per_faction",
		"construction.base_build_time", "construction.builder_bonus",
		"server.pid_file", "server.save_slot", "server.save_interval", "server.shutdown_timeout",
	} {
		_ = v.BindEnv(key)
	}
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

